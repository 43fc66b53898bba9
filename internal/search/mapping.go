package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildEventMapping creates the Bleve index mapping for search events.
//
// Queries are kept verbatim with the keyword analyzer; normalization happens
// at aggregation time so the raw log stays faithful.
func buildEventMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	queryFieldMapping := bleve.NewTextFieldMapping()
	queryFieldMapping.Analyzer = keyword.Name
	queryFieldMapping.Store = true
	docMapping.AddFieldMappingsAt(fieldQuery, queryFieldMapping)

	// User ID - exact match for per-user ranges
	userFieldMapping := bleve.NewTextFieldMapping()
	userFieldMapping.Analyzer = keyword.Name
	userFieldMapping.Store = true
	docMapping.AddFieldMappingsAt(fieldUserID, userFieldMapping)

	// Timestamp - for range queries and sorting
	searchedAtFieldMapping := bleve.NewDateTimeFieldMapping()
	searchedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt(fieldSearchedAt, searchedAtFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
