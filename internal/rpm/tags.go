package rpm

// Header tags not exported by go-rpmutils. Numeric values follow
// rpmlib's rpmtag.h.
const (
	tagDescription       = 1005
	tagBuildHost         = 1007
	tagVendor            = 1011
	tagSourceRpm         = 1044
	tagPayloadCompressor = 1125

	tagProvideName    = 1047
	tagRequireFlags   = 1048
	tagRequireName    = 1049
	tagRequireVersion = 1050

	tagConflictFlags   = 1053
	tagConflictName    = 1054
	tagConflictVersion = 1055

	tagObsoleteName    = 1090
	tagProvideFlags    = 1112
	tagProvideVersion  = 1113
	tagObsoleteFlags   = 1114
	tagObsoleteVersion = 1115

	tagRecommendName     = 5046
	tagRecommendVersion  = 5047
	tagRecommendFlags    = 5048
	tagSuggestName       = 5049
	tagSuggestVersion    = 5050
	tagSuggestFlags      = 5051
	tagSupplementName    = 5052
	tagSupplementVersion = 5053
	tagSupplementFlags   = 5054
	tagEnhanceName       = 5055
	tagEnhanceVersion    = 5056
	tagEnhanceFlags      = 5057
)

// File flag bits from rpmfileAttrs.
const (
	FileAttrConfig  = 1 << 0
	FileAttrDoc     = 1 << 1
	FileAttrGhost   = 1 << 6
	FileAttrLicense = 1 << 7
)

// POSIX st_mode bits.
const (
	modeTypeMask = 0o170000
	modeRegular  = 0o100000
	modeDir      = 0o040000
	modeExecAny  = 0o111
)

// Comparison bits in dependency flag words.
const (
	senseLess    = 0x02
	senseGreater = 0x04
	senseEqual   = 0x08
)
