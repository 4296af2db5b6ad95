package style

// WordCount is one entry of an ordered frequency list. Lists are ordered by
// descending count, ties broken by first occurrence in the sample.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Profile is the statistical fingerprint of a writing sample. It is the
// input to the humanizer and the payload of the profile API.
type Profile struct {
	AvgSentenceLength   float64     `json:"avg_sentence_length"`
	SentenceLengthStdev float64     `json:"sentence_length_stdev"`
	VocabComplexity     float64     `json:"vocab_complexity"`
	ContractionsRate    float64     `json:"contractions_rate"`
	TopWords            []WordCount `json:"top_words"`
	CommonStarters      []WordCount `json:"common_starters"`
	PersonalExpressions []string    `json:"personal_expressions"`
}
