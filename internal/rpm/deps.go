package rpm

import "strings"

// DepType selects one of the eight dependency categories, each backed
// by a name/flags/version tag triple in the header.
type DepType int

const (
	DepProvides DepType = iota
	DepRequires
	DepConflicts
	DepObsoletes
	DepRecommends
	DepSuggests
	DepSupplements
	DepEnhances
)

// DepTypes lists the categories in the order they appear inside a
// package's <format> element.
var DepTypes = []DepType{
	DepProvides,
	DepRequires,
	DepConflicts,
	DepObsoletes,
	DepRecommends,
	DepSuggests,
	DepSupplements,
	DepEnhances,
}

// String returns the element name used in primary.xml.
func (t DepType) String() string {
	switch t {
	case DepProvides:
		return "provides"
	case DepRequires:
		return "requires"
	case DepConflicts:
		return "conflicts"
	case DepObsoletes:
		return "obsoletes"
	case DepRecommends:
		return "recommends"
	case DepSuggests:
		return "suggests"
	case DepSupplements:
		return "supplements"
	case DepEnhances:
		return "enhances"
	default:
		return ""
	}
}

func (t DepType) tags() (name, flags, version int) {
	switch t {
	case DepProvides:
		return tagProvideName, tagProvideFlags, tagProvideVersion
	case DepRequires:
		return tagRequireName, tagRequireFlags, tagRequireVersion
	case DepConflicts:
		return tagConflictName, tagConflictFlags, tagConflictVersion
	case DepObsoletes:
		return tagObsoleteName, tagObsoleteFlags, tagObsoleteVersion
	case DepRecommends:
		return tagRecommendName, tagRecommendFlags, tagRecommendVersion
	case DepSuggests:
		return tagSuggestName, tagSuggestFlags, tagSuggestVersion
	case DepSupplements:
		return tagSupplementName, tagSupplementFlags, tagSupplementVersion
	case DepEnhances:
		return tagEnhanceName, tagEnhanceFlags, tagEnhanceVersion
	default:
		return 0, 0, 0
	}
}

// Dependency is one entry of a dependency category.
type Dependency struct {
	Name    string
	Flags   uint64
	Version string
}

// Dependencies reads the parallel tag arrays for one category. The
// three cursors advance together and stop as soon as any array is
// exhausted; the header does not guarantee equal lengths.
func (r *Rpm) Dependencies(t DepType) []Dependency {
	nameTag, flagsTag, versionTag := t.tags()

	names := r.stringsTag(nameTag)
	flags := r.uint64sTag(flagsTag)
	versions := r.stringsTag(versionTag)

	n := len(names)
	if len(flags) < n {
		n = len(flags)
	}
	if len(versions) < n {
		n = len(versions)
	}

	deps := make([]Dependency, 0, n)
	for i := 0; i < n; i++ {
		deps = append(deps, Dependency{
			Name:    names[i],
			Flags:   flags[i],
			Version: versions[i],
		})
	}
	return deps
}

// RepoMdFlags maps the comparison nibble to the flags attribute
// value. Unversioned or unknown combinations yield the empty string,
// which suppresses the attribute.
func (d Dependency) RepoMdFlags() string {
	switch d.Flags & (senseLess | senseGreater | senseEqual) {
	case senseLess:
		return "LT"
	case senseGreater:
		return "GT"
	case senseEqual:
		return "EQ"
	case senseLess | senseEqual:
		return "LE"
	case senseGreater | senseEqual:
		return "GE"
	default:
		return ""
	}
}

// VersionParts splits "[epoch:]ver[-rel]": the epoch precedes the
// first colon, the release follows the last dash.
func (d Dependency) VersionParts() (epoch, ver, rel string) {
	ver = d.Version
	if i := strings.Index(ver, ":"); i >= 0 {
		epoch = ver[:i]
		ver = ver[i+1:]
	}
	if i := strings.LastIndex(ver, "-"); i >= 0 {
		rel = ver[i+1:]
		ver = ver[:i]
	}
	return epoch, ver, rel
}
