package graphs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/groups"
	"github.com/gograph/gograph/users"
)

// DefaultPageSize is used when the configuration does not set one.
const DefaultPageSize = 15

// tagSummaryWindow bounds the tag aggregation: only the most recent ranked
// results feed the summary, so one query over a huge corpus stays cheap.
const tagSummaryWindow = 250

// tagSummarySize is how many tags the summary keeps.
const tagSummarySize = 10

// Scope selects which graphs a listing covers.
type Scope int

const (
	ScopeMine Scope = iota
	ScopeShared
	ScopePublic
	ScopeAll
)

func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "mine":
		return ScopeMine, nil
	case "shared":
		return ScopeShared, nil
	case "public":
		return ScopePublic, nil
	case "all":
		return ScopeAll, nil
	}
	return 0, errors.New(fmt.Sprintf("unknown graph scope %s", s), errors.BadRequest())
}

// SearchMode selects how search terms match.
type SearchMode int

const (
	// MatchPartial matches case-insensitive substrings of the name or any
	// tag; any term matching is enough.
	MatchPartial SearchMode = iota
	// MatchFull requires a term to equal the name or a tag exactly.
	MatchFull
)

func ParseSearchMode(s string) (SearchMode, error) {
	switch s {
	case "", "partial":
		return MatchPartial, nil
	case "full":
		return MatchFull, nil
	}
	return 0, errors.New(fmt.Sprintf("unknown search mode %s", s), errors.BadRequest())
}

// Filter narrows a listing. Terms match per the mode; Tags must ALL be
// carried by a graph for it to pass.
type Filter struct {
	Mode  SearchMode
	Terms []string
	Tags  []string
}

func (f Filter) empty() bool {
	return len(f.Terms) == 0 && len(f.Tags) == 0
}

// EmptyReason tells the caller why a listing came back empty. The engine
// reports the code; prose is the presentation layer's business.
type EmptyReason string

const (
	NoGraphsAtAll           EmptyReason = "no-graphs-at-all"
	NoMatchForSearch        EmptyReason = "no-match-for-search"
	NoMatchForTags          EmptyReason = "no-match-for-tags"
	NoMatchForSearchAndTags EmptyReason = "no-match-for-search-and-tags"
)

// GraphSummary is the listing row: enough to render an entry without the
// payload.
type GraphSummary struct {
	Owner    string   `json:"owner"`
	Name     string   `json:"name"`
	Tags     []string `json:"tags"`
	IsPublic bool     `json:"isPublic"`

	UpdatedAt time.Time `json:"updatedAt"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type Listing struct {
	Graphs []GraphSummary `json:"graphs"`
	Tags   []TagCount     `json:"tags"`
	Page   int            `json:"page"`
	Pages  int            `json:"pages"`
	Total  int            `json:"total"`
	Reason EmptyReason    `json:"reason,omitempty"`
}

type scopeResolver func(s *Service, viewer users.User) ([]Graph, error)

var scopeResolvers = map[Scope]scopeResolver{
	ScopeMine: func(s *Service, viewer users.User) ([]Graph, error) {
		if users.IsPublic(viewer.ID) {
			return nil, errors.New("you need to be logged in to list your graphs", errors.Unauthorized())
		}
		return s.repository.ListOwnedBy(viewer.ID)
	},
	ScopeShared: func(s *Service, viewer users.User) ([]Graph, error) {
		if users.IsPublic(viewer.ID) {
			return nil, errors.New("you need to be logged in to list shared graphs", errors.Unauthorized())
		}
		shared, err := s.repository.ListSharedWith(viewer.ID)
		if err != nil {
			return nil, err
		}
		graphs := shared[:0]
		for _, g := range shared {
			if g.Owner != viewer.ID {
				graphs = append(graphs, g)
			}
		}
		return graphs, nil
	},
	ScopePublic: func(s *Service, viewer users.User) ([]Graph, error) {
		public, err := s.repository.ListPublic()
		if err != nil {
			return nil, err
		}
		graphs := public[:0]
		for _, g := range public {
			if g.Owner != viewer.ID {
				graphs = append(graphs, g)
			}
		}
		return graphs, nil
	},
	ScopeAll: func(s *Service, viewer users.User) ([]Graph, error) {
		if !viewer.IsAdmin {
			return nil, errors.New("the all scope is reserved to admins", errors.Forbidden())
		}
		return s.repository.List()
	},
}

// List is the main listing query: resolve the scope, filter, rank by
// freshness, summarize the tags over the most recent results, and paginate.
// The same state and filter always produce the same order.
func (s *Service) List(viewer users.User, scope Scope, filter Filter, page int) (Listing, error) {
	resolve, ok := scopeResolvers[scope]
	if !ok {
		return Listing{}, errors.New(fmt.Sprintf("unknown graph scope %d", scope), errors.BadRequest())
	}

	graphs, err := resolve(s, viewer)
	if err != nil {
		return Listing{}, err
	}

	inScope := len(graphs)
	graphs = applyFilter(graphs, filter)
	rank(graphs)

	total := len(graphs)
	page, pages := clampPage(page, total, s.pageSize)

	listing := Listing{
		Graphs: summarize(pageSlice(graphs, page, s.pageSize)),
		Tags:   tagSummary(graphs),
		Page:   page,
		Pages:  pages,
		Total:  total,
	}
	if total == 0 {
		listing.Reason = emptyReason(inScope, filter)
	}

	return listing, nil
}

// ListGroupGraphs lists the graphs shared into one group. Group members
// only; outsiders get a not found. The tag list covers the returned page.
func (s *Service) ListGroupGraphs(viewer users.User, group groups.Key, filter Filter, page int) (Listing, error) {
	ok, err := s.groups.IsMember(viewer.ID, group)
	if err != nil {
		return Listing{}, err
	} else if !ok {
		return Listing{}, errGroupNotFound(group)
	}

	grants, err := s.grants.ListForGroup(group)
	if err != nil {
		return Listing{}, err
	}

	graphs := make([]Graph, 0, len(grants))
	for _, grant := range grants {
		graph, err := s.repository.Get(grant.Graph)
		if err != nil {
			return Listing{}, err
		}
		if graph.Exists() {
			graphs = append(graphs, graph)
		}
	}

	inScope := len(graphs)
	graphs = applyFilter(graphs, filter)
	rank(graphs)

	total := len(graphs)
	page, pages := clampPage(page, total, s.pageSize)
	paged := pageSlice(graphs, page, s.pageSize)

	listing := Listing{
		Graphs: summarize(paged),
		Tags:   tagSummaryAll(paged),
		Page:   page,
		Pages:  pages,
		Total:  total,
	}
	if total == 0 {
		listing.Reason = emptyReason(inScope, filter)
	}

	return listing, nil
}

// TagsForUser returns the distinct tags over the user's own graphs. Callers
// only see their own tags.
func (s *Service) TagsForUser(caller, user string) ([]string, error) {
	if caller != user {
		return nil, errors.New("you can only list your own tags", errors.Forbidden())
	}

	graphs, err := s.repository.ListOwnedBy(user)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	tags := []string{}
	for _, g := range graphs {
		for _, tag := range g.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)

	return tags, nil
}

// GraphsForTag returns every graph visible to the viewer carrying the tag,
// ranked like a listing.
func (s *Service) GraphsForTag(viewer users.User, tag string) ([]GraphSummary, error) {
	if tag == "" {
		return nil, errors.New("tag cannot be empty", errors.BadRequest())
	}

	graphs, err := s.visibleGraphs(viewer)
	if err != nil {
		return nil, err
	}

	matching := graphs[:0]
	for _, g := range graphs {
		if g.HasTag(tag) {
			matching = append(matching, g)
		}
	}
	rank(matching)

	return summarize(matching), nil
}

// visibleGraphs is the union of the viewer's own graphs, the graphs shared
// into their groups and the public ones, deduplicated.
func (s *Service) visibleGraphs(viewer users.User) ([]Graph, error) {
	public, err := s.repository.ListPublic()
	if err != nil {
		return nil, err
	}

	graphs := public
	if !users.IsPublic(viewer.ID) {
		owned, err := s.repository.ListOwnedBy(viewer.ID)
		if err != nil {
			return nil, err
		}
		shared, err := s.repository.ListSharedWith(viewer.ID)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, owned...)
		graphs = append(graphs, shared...)
	}

	seen := make(map[Key]bool, len(graphs))
	deduped := graphs[:0]
	for _, g := range graphs {
		if seen[g.Key] {
			continue
		}
		seen[g.Key] = true
		deduped = append(deduped, g)
	}

	return deduped, nil
}

func applyFilter(graphs []Graph, filter Filter) []Graph {
	if filter.empty() {
		return graphs
	}

	kept := graphs[:0]
	for _, g := range graphs {
		if matchesTerms(g, filter) && matchesTags(g, filter.Tags) {
			kept = append(kept, g)
		}
	}
	return kept
}

func matchesTerms(g Graph, filter Filter) bool {
	if len(filter.Terms) == 0 {
		return true
	}

	for _, term := range filter.Terms {
		switch filter.Mode {
		case MatchFull:
			if g.Name == term || g.HasTag(term) {
				return true
			}
		default:
			lower := strings.ToLower(term)
			if strings.Contains(strings.ToLower(g.Name), lower) {
				return true
			}
			for _, tag := range g.Tags {
				if strings.Contains(strings.ToLower(tag), lower) {
					return true
				}
			}
		}
	}
	return false
}

func matchesTags(g Graph, tags []string) bool {
	for _, tag := range tags {
		if !g.HasTag(tag) {
			return false
		}
	}
	return true
}

// rank orders by freshness, newest first, with the key as a deterministic
// tie break.
func rank(graphs []Graph) {
	sort.SliceStable(graphs, func(i, j int) bool {
		if !graphs[i].UpdatedAt.Equal(graphs[j].UpdatedAt) {
			return graphs[i].UpdatedAt.After(graphs[j].UpdatedAt)
		}
		if graphs[i].Owner != graphs[j].Owner {
			return graphs[i].Owner < graphs[j].Owner
		}
		return graphs[i].Name < graphs[j].Name
	})
}

// tagSummary counts tags over the most recent ranked results, window
// bounded, and keeps the most frequent ones. Ties break on the tag text so
// the summary is stable.
func tagSummary(ranked []Graph) []TagCount {
	if len(ranked) > tagSummaryWindow {
		ranked = ranked[:tagSummaryWindow]
	}

	counts := tagSummaryAll(ranked)
	if len(counts) > tagSummarySize {
		counts = counts[:tagSummarySize]
	}
	return counts
}

func tagSummaryAll(graphs []Graph) []TagCount {
	byTag := make(map[string]int)
	for _, g := range graphs {
		for _, tag := range g.Tags {
			byTag[tag]++
		}
	}

	counts := make([]TagCount, 0, len(byTag))
	for tag, count := range byTag {
		counts = append(counts, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Tag < counts[j].Tag
	})

	return counts
}

func summarize(graphs []Graph) []GraphSummary {
	summaries := make([]GraphSummary, len(graphs))
	for i, g := range graphs {
		summaries[i] = GraphSummary{
			Owner:     g.Owner,
			Name:      g.Name,
			Tags:      g.Tags,
			IsPublic:  g.IsPublic,
			UpdatedAt: g.UpdatedAt,
		}
	}
	return summaries
}

func emptyReason(inScope int, filter Filter) EmptyReason {
	if inScope == 0 {
		return NoGraphsAtAll
	}
	switch {
	case len(filter.Terms) > 0 && len(filter.Tags) > 0:
		return NoMatchForSearchAndTags
	case len(filter.Tags) > 0:
		return NoMatchForTags
	case len(filter.Terms) > 0:
		return NoMatchForSearch
	}
	return NoGraphsAtAll
}

func pageSlice(graphs []Graph, page, pageSize int) []Graph {
	start := (page - 1) * pageSize
	if start >= len(graphs) {
		return []Graph{}
	}
	end := start + pageSize
	if end > len(graphs) {
		end = len(graphs)
	}
	return graphs[start:end]
}

// clampPage fails closed: pages beyond the last return the last page,
// anything below 1 returns the first.
func clampPage(page, total, pageSize int) (int, int) {
	pages := (total + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}

	if page < 1 {
		page = 1
	} else if page > pages {
		page = pages
	}

	return page, pages
}
