//go:build !windows

package service

import (
	"context"

	"github.com/ultrasearch/ultrasearch/pkg/log"
	"github.com/ultrasearch/ultrasearch/pkg/volume"
)

// watchVolume has no implementation outside Windows; UltraSearch's
// production target is Windows only (spec §1). It blocks until ctx is
// cancelled so Start's per-volume goroutines still exit cleanly in
// cross-platform builds.
func (s *Service) watchVolume(ctx context.Context, d volume.Descriptor, prior persistedVolume) {
	log.WithVolume(uint16(d.ID)).Warn().Msg("ntfs volume watching is only supported on windows")
	<-ctx.Done()
}
