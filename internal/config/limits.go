package config

const (
	// MaxTitleLength is the maximum length for structure item titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxTitleLength = 255

	// MaxEntityIDLength bounds entity ids accepted by the change ledger.
	// UUIDs are 36 characters; the slack allows slugs used by fixtures.
	MaxEntityIDLength = 128

	// MaxDocumentContentBytes caps a single draft or published body.
	MaxDocumentContentBytes = 5 << 20
)
