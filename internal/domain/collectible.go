package domain

import "time"

// Currency identifies one of the two settlement currencies supported by the
// marketplace. Every listing is priced in exactly one of them.
type Currency string

const (
	CurrencyTON   Currency = "TON"
	CurrencyStars Currency = "STARS"
)

// Valid reports whether c is a known currency.
func (c Currency) Valid() bool {
	return c == CurrencyTON || c == CurrencyStars
}

// Sticker is the source asset a collectible is minted from. It is created by
// the upload flow and never changes owner itself; ownership moves on the
// Collectible minted from it.
type Sticker struct {
	ID          string
	Owner       string
	FileKey     string // object storage key for the uploaded image
	Name        string
	Description string
	ImageURL    string
	CreatedAt   time.Time
}

// Collectible is the tokenized asset record whose ownership the settlement
// engine tracks. Owner is mutated exclusively by the settlement service.
type Collectible struct {
	ID          string
	Owner       string
	StickerID   string
	Name        string
	Description string
	ImageURL    string
	Chain       Currency // chain the token was minted for
	TokenRef    string   // on-chain or logical token id; empty until minted
	MetadataURL string
	CreatedAt   time.Time
}

// CollectibleMetadata is the read-only shape served to external indexers.
type CollectibleMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Metadata returns the indexer view of the collectible.
func (c Collectible) Metadata() CollectibleMetadata {
	return CollectibleMetadata{
		Name:        c.Name,
		Description: c.Description,
		Image:       c.ImageURL,
	}
}
