// Package visibility holds the pure predicate deciding whether a post is
// exposed to an unprivileged caller. The store applies the same rule inside
// SQL as NOT EXISTS sub-predicates so that pagination happens after
// filtering; this package is the in-memory reference used by the memory
// store and by tests.
package visibility

// Visible reports whether a post may be shown to a caller without elevated
// access. A post is hidden when its own flag is false, or when any linked
// category, collection or community is non-public. A post with no tag links
// at all is visible whenever its own flag is true.
func Visible(postPublic bool, categories, collections, communities []bool) bool {
	if !postPublic {
		return false
	}
	if anyHidden(categories) || anyHidden(collections) || anyHidden(communities) {
		return false
	}
	return true
}

func anyHidden(flags []bool) bool {
	for _, public := range flags {
		if !public {
			return true
		}
	}
	return false
}
