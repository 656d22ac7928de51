package domain

type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

type Utterance struct {
	Text  string
	Voice Voice
	Pitch float64
	Rate  float64
}
