package subscription

// Subscription is one feed to watch. FeedURL is the identity; Title
// and WebsiteURL are presentation only.
type Subscription struct {
	Title      string `yaml:"title"`
	FeedURL    string `yaml:"url"`
	WebsiteURL string `yaml:"website"`
}
