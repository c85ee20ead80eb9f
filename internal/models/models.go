package models

type Film struct {
	ID         string
	Title      string
	EpisodeID  int
	Characters []string
}

type Character struct {
	URL  string
	Name string
}
