package domain

// Game is one catalogue entry as served by the backend.
type Game struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Rating      float64  `json:"rating"`
	Price       float64  `json:"price"`
	Developer   string   `json:"developer"`
	Publisher   string   `json:"publisher"`
	ReleaseDate string   `json:"releaseDate"`
	Platforms   []string `json:"platforms"`
	Genres      []string `json:"genres"`
}

// SteamDeveloper is a developer entry returned alongside the hot catalogue.
type SteamDeveloper struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Games []string `json:"games"`
}

// HotCatalogue is the paged trending-games response.
type HotCatalogue struct {
	Games           []Game           `json:"games"`
	SteamDevelopers []SteamDeveloper `json:"steamDevelopers"`
}
