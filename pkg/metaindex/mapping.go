// Package metaindex maintains the persistent, full-text-queryable
// representation of every live filesystem entry (spec §4.3).
package metaindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
)

const docType = "metadoc"

// nameTokenizerRegexp splits names on path/word separators, per spec
// §4.3: "name is tokenized by splitting on [\ /._-] and also indexed
// whole".
const nameTokenizerRegexp = `[^\\ /._-]+`

// pathTokenizerRegexp tokenizes path on the directory separator alone.
const pathTokenizerRegexp = `[^\\/]+`

func registerAnalyzers(mapping *bleve.IndexMapping) error {
	if err := mapping.AddCustomTokenizer("name_split", map[string]interface{}{
		"type":   "regexp",
		"regexp": nameTokenizerRegexp,
	}); err != nil {
		return err
	}
	if err := mapping.AddCustomTokenizer("path_split", map[string]interface{}{
		"type":   "regexp",
		"regexp": pathTokenizerRegexp,
	}); err != nil {
		return err
	}
	if err := mapping.AddCustomAnalyzer("name_analyzer", map[string]interface{}{
		"type":          "custom",
		"tokenizer":     "name_split",
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return err
	}
	return mapping.AddCustomAnalyzer("path_analyzer", map[string]interface{}{
		"type":          "custom",
		"tokenizer":     "path_split",
		"token_filters": []string{lowercase.Name},
	})
}

// NewMapping builds the metadata document mapping: doc_key, volume, ext,
// size, created, modified, flags are fast columnar fields; name and path
// use dedicated tokenizers; name is additionally indexed whole via
// name_exact for exact-match boosting (spec §8 scenario 6).
func NewMapping() (*bleve.IndexMapping, error) {
	mapping := bleve.NewIndexMapping()
	if err := registerAnalyzers(mapping); err != nil {
		return nil, err
	}

	doc := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = "name_analyzer"
	doc.AddFieldMappingsAt("name", nameField)

	nameExactField := bleve.NewTextFieldMapping()
	nameExactField.Analyzer = "keyword"
	doc.AddFieldMappingsAt("name_exact", nameExactField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = "path_analyzer"
	doc.AddFieldMappingsAt("path", pathField)

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"
	doc.AddFieldMappingsAt("doc_key", keywordField)
	doc.AddFieldMappingsAt("ext", keywordField)

	numField := bleve.NewNumericFieldMapping()
	doc.AddFieldMappingsAt("volume", numField)
	doc.AddFieldMappingsAt("size", numField)
	doc.AddFieldMappingsAt("flags", numField)

	dateField := bleve.NewDateTimeFieldMapping()
	doc.AddFieldMappingsAt("created", dateField)
	doc.AddFieldMappingsAt("modified", dateField)

	mapping.AddDocumentMapping(docType, doc)
	mapping.DefaultMapping = doc
	mapping.TypeField = "_type"
	mapping.DefaultType = docType

	return mapping, nil
}
