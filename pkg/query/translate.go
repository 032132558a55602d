package query

import (
	"fmt"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
)

// metaFields is the set of fields an unfielded bare term expands to
// against the metadata index (spec §4.8: NameOnly searches name/path/ext).
var metaFields = []Field{FieldName, FieldPath, FieldExt}

// ToMetaQuery translates expr into a bleve.Query against the metadata
// index mapping (name, name_exact, path, ext, size, created, modified).
func ToMetaQuery(expr Expr) (bleve.Query, error) {
	switch e := expr.(type) {
	case TermExpr:
		return metaTermQuery(e)
	case RangeExpr:
		return metaRangeQuery(e)
	case NotExpr:
		child, err := ToMetaQuery(e.Child)
		if err != nil {
			return nil, err
		}
		boolQ := bleve.NewBooleanQuery()
		boolQ.AddMustNot(child)
		boolQ.AddShould(bleve.NewMatchAllQuery())
		return boolQ, nil
	case AndExpr:
		return combine(e.Children, ToMetaQuery, true)
	case OrExpr:
		return combine(e.Children, ToMetaQuery, false)
	default:
		return nil, fmt.Errorf("unsupported expr type %T", expr)
	}
}

// ToContentQuery translates expr into a bleve.Query against the content
// index mapping (content, lang). lang terms match the lang field; every
// other term, unfielded or on name/path/ext, is matched against content.
// Range terms (size/created/modified) become MatchAll. The orchestrator
// passes the whole expression here, not only its content terms.
func ToContentQuery(expr Expr) (bleve.Query, error) {
	switch e := expr.(type) {
	case TermExpr:
		return contentTermQuery(e), nil
	case RangeExpr:
		return bleve.NewMatchAllQuery(), nil
	case NotExpr:
		child, err := ToContentQuery(e.Child)
		if err != nil {
			return nil, err
		}
		boolQ := bleve.NewBooleanQuery()
		boolQ.AddMustNot(child)
		boolQ.AddShould(bleve.NewMatchAllQuery())
		return boolQ, nil
	case AndExpr:
		return combine(e.Children, ToContentQuery, true)
	case OrExpr:
		return combine(e.Children, ToContentQuery, false)
	default:
		return nil, fmt.Errorf("unsupported expr type %T", expr)
	}
}

func combine(children []Expr, translate func(Expr) (bleve.Query, error), conjunction bool) (bleve.Query, error) {
	queries := make([]bleve.Query, 0, len(children))
	for _, c := range children {
		q, err := translate(c)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	if conjunction {
		return bleve.NewConjunctionQuery(queries...), nil
	}
	return bleve.NewDisjunctionQuery(queries...), nil
}

func metaTermQuery(t TermExpr) (bleve.Query, error) {
	fields := metaFields
	if t.Field != FieldAny {
		if t.Field == FieldContent || t.Field == FieldLang {
			// Content-only field referenced against the metadata index:
			// never matches there; the orchestrator routes it to content.
			return bleve.NewMatchNoneQuery(), nil
		}
		fields = []Field{t.Field}
	}

	disj := make([]bleve.Query, 0, len(fields))
	for _, f := range fields {
		disj = append(disj, fieldQuery(string(f), t.Value, t.Modifier))
	}
	if len(disj) == 1 {
		return disj[0], nil
	}
	return bleve.NewDisjunctionQuery(disj...), nil
}

func contentTermQuery(t TermExpr) bleve.Query {
	field := "content"
	if t.Field == FieldLang {
		field = "lang"
	}
	return fieldQuery(field, t.Value, t.Modifier)
}

func fieldQuery(field, value string, modifier Modifier) bleve.Query {
	switch modifier {
	case ModifierPrefix:
		q := bleve.NewPrefixQuery(value)
		q.SetField(field)
		return q
	case ModifierFuzzy:
		q := bleve.NewFuzzyQuery(value)
		q.SetField(field)
		q.Fuzziness = 2
		return q
	default:
		q := bleve.NewMatchQuery(value)
		q.SetField(field)
		return q
	}
}

func metaRangeQuery(r RangeExpr) (bleve.Query, error) {
	switch r.Field {
	case RangeSize:
		lo, hi, err := parseFloatBounds(r.Lo, r.Hi)
		if err != nil {
			return nil, err
		}
		q := bleve.NewNumericRangeInclusiveQuery(lo, hi, boolPtr(r.Inclusive, lo), boolPtr(r.Inclusive, hi))
		q.SetField("size")
		return q, nil
	case RangeCreated, RangeModified:
		lo, hi, err := parseTimeBounds(r.Lo, r.Hi)
		if err != nil {
			return nil, err
		}
		start, end := timeRangeOrDefault(lo, hi)
		incl := r.Inclusive
		q := bleve.NewDateRangeInclusiveQuery(start, end, &incl, &incl)
		q.SetField(string(r.Field))
		return q, nil
	default:
		return nil, fmt.Errorf("unsupported range field %q", r.Field)
	}
}

func boolPtr(v bool, bound *float64) *bool {
	if bound == nil {
		return nil
	}
	return &v
}

// timeRangeOrDefault fills an unbounded side of a date range with a wide
// sentinel, since bleve's date range query takes concrete bounds rather
// than optional ones.
func timeRangeOrDefault(lo, hi *time.Time) (time.Time, time.Time) {
	start := time.Unix(0, 0).UTC()
	if lo != nil {
		start = *lo
	}
	end := time.Now().AddDate(100, 0, 0)
	if hi != nil {
		end = *hi
	}
	return start, end
}

func parseFloatBounds(lo, hi *string) (*float64, *float64, error) {
	loF, err := parseOptionalFloat(lo)
	if err != nil {
		return nil, nil, err
	}
	hiF, err := parseOptionalFloat(hi)
	if err != nil {
		return nil, nil, err
	}
	return loF, hiF, nil
}

func parseOptionalFloat(s *string) (*float64, error) {
	if s == nil {
		return nil, nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric bound %q: %w", *s, err)
	}
	return &v, nil
}

func parseTimeBounds(lo, hi *string) (*time.Time, *time.Time, error) {
	loT, err := parseOptionalTime(lo)
	if err != nil {
		return nil, nil, err
	}
	hiT, err := parseOptionalTime(hi)
	if err != nil {
		return nil, nil, err
	}
	return loT, hiT, nil
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, fmt.Errorf("invalid time bound %q: %w", *s, err)
	}
	return &t, nil
}
