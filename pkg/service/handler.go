package service

import (
	"context"

	"github.com/ultrasearch/ultrasearch/pkg/ipc"
	"github.com/ultrasearch/ultrasearch/pkg/query"
)

// ipcHandler adapts the Service's components to ipc.Handler (spec §4.7,
// §6).
type ipcHandler struct {
	svc *Service
}

func (h *ipcHandler) Search(ctx context.Context, req *ipc.Request) (*ipc.Response, error) {
	result, err := h.svc.orchestrator.Search(ctx, req.Query, req.Limit, req.Offset, query.Mode(req.Mode))
	if err != nil {
		return nil, err
	}

	hits := make([]ipc.SearchHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, ipc.SearchHit{
			DocKey:   uint64(hit.DocKey),
			Score:    hit.Score,
			Name:     hit.Name,
			Path:     hit.Path,
			Size:     hit.Size,
			Modified: hit.Modified.Unix(),
			Ext:      hit.Ext,
			Snippet:  hit.Snippet,
		})
	}

	return &ipc.Response{Hits: hits, Total: result.Total, TimedOut: result.TimedOut}, nil
}

func (h *ipcHandler) Status(ctx context.Context) (*ipc.StatusInfo, error) {
	return h.svc.status(), nil
}

func (h *ipcHandler) ConfigGet(ctx context.Context, key string) (string, error) {
	return h.svc.configGet(key)
}

func (h *ipcHandler) ConfigSet(ctx context.Context, key, value string) error {
	return h.svc.cfg.Set(key, value)
}
