package bleve

import (
	"sort"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"

	"github.com/gograph/gograph/errors"
)

// TagIndex indexes tag texts for autocompletion. It is advisory only:
// listings and visibility decisions never consult it.
type TagIndex struct {
	index bleve.Index
}

type tagDocument struct {
	Tag string `json:"tag"`
}

// Open opens the index at path, creating it with a keyword-analyzed tag
// field on first use.
func Open(path string) (*TagIndex, error) {
	index, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		tm := bleve.NewTextFieldMapping()
		tm.Analyzer = keyword.Name

		dm := bleve.NewDocumentMapping()
		dm.AddFieldMappingsAt("tag", tm)

		mapping := bleve.NewIndexMapping()
		mapping.AddDocumentMapping("tag", dm)
		mapping.DefaultType = "tag"

		index, err = bleve.New(path, mapping)
		if err != nil {
			return nil, errors.New("could not create tag index", errors.Unavailable(), errors.WithCause(err))
		}
	} else if err != nil {
		return nil, errors.New("could not open tag index", errors.Unavailable(), errors.WithCause(err))
	}

	return &TagIndex{index: index}, nil
}

// Index registers a tag text. Indexing the same tag twice just overwrites
// its document.
func (i *TagIndex) Index(tag string) error {
	if tag == "" {
		return nil
	}
	return i.index.Index(tag, tagDocument{Tag: tag})
}

// Search returns the indexed tags starting with prefix, sorted. An empty
// prefix returns nothing: the index answers completions, not a full dump.
func (i *TagIndex) Search(prefix string) ([]string, error) {
	if prefix == "" {
		return []string{}, nil
	}

	query := bleve.NewPrefixQuery(prefix)
	query.SetField("tag")

	search := bleve.NewSearchRequest(query)
	search.Size = 100

	results, err := i.index.Search(search)
	if err != nil {
		return nil, err
	}

	tags := make([]string, len(results.Hits))
	for n, hit := range results.Hits {
		tags[n] = hit.ID
	}
	sort.Strings(tags)

	return tags, nil
}

// Close closes the underlying index.
func (i *TagIndex) Close() error {
	return i.index.Close()
}
