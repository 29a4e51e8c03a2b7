package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for candidate documents.
// Email, phone and entity type are matched as whole terms; names are split
// into lowercase letter runs so single tokens can be fuzzy matched.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()

	for _, field := range []string{"id", "entity_type", "email", "phone"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = field == "id"
		docMapping.AddFieldMappingsAt(field, fm)
	}

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = simple.Name
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
