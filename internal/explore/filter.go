package explore

import (
	"sort"
	"strings"

	"snapgram/internal/models"
)

// Filter refines the displayed posts at render time. It never changes what
// was fetched.
type Filter struct {
	Kind string
	Tag  string
}

// Filter kinds.
const (
	FilterAll     = "all"
	FilterRecent  = "recent"
	FilterPopular = "popular"
	FilterTag     = "tag"
)

// ParseFilter reads "all", "recent", "popular" or "tag:<name>". Anything else
// is treated as "all".
func ParseFilter(s string) Filter {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == FilterRecent:
		return Filter{Kind: FilterRecent}
	case s == FilterPopular:
		return Filter{Kind: FilterPopular}
	case strings.HasPrefix(s, FilterTag+":") && len(s) > len(FilterTag)+1:
		return Filter{Kind: FilterTag, Tag: strings.TrimPrefix(s, FilterTag+":")}
	default:
		return Filter{Kind: FilterAll}
	}
}

func (f Filter) String() string {
	if f.Kind == FilterTag {
		return FilterTag + ":" + f.Tag
	}
	if f.Kind == "" {
		return FilterAll
	}
	return f.Kind
}

// Apply returns the posts to display. The input slice is not modified.
func (f Filter) Apply(posts []models.Post) []models.Post {
	out := make([]models.Post, 0, len(posts))
	switch f.Kind {
	case FilterTag:
		for _, p := range posts {
			for _, t := range p.Tags {
				if strings.EqualFold(t, f.Tag) {
					out = append(out, p)
					break
				}
			}
		}
	default:
		out = append(out, posts...)
	}

	switch f.Kind {
	case FilterRecent:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	case FilterPopular:
		sort.SliceStable(out, func(i, j int) bool { return len(out[i].Likes) > len(out[j].Likes) })
	}
	return out
}
