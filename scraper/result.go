package scraper

// Page is the result of a successful fetch.
type Page struct {
	// URL is the resolved request URL.
	URL string

	// FinalURL is the URL after redirects.
	FinalURL string

	StatusCode int

	// Title is the page <title>, if any.
	Title string

	// Content is the response body, byte-identical to what the server sent.
	Content []byte

	// Attempts is the number of attempts made, including the successful one.
	Attempts int

	EngineName string
}
