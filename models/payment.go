package models

// CheckoutOptions is everything the page needs to open the hosted checkout
// widget. The widget itself is opaque; these map onto its constructor.
type CheckoutOptions struct {
	Key         string `json:"key"`
	Amount      int    `json:"amount"`
	Currency    string `json:"currency"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OrderID     string `json:"order_id"`
	ThemeColor  string `json:"theme_color"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// DownloadSpec describes a client-side save of the paid video. Producing it
// never touches the network; the page triggers the save from the URL.
type DownloadSpec struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}
