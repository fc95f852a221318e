package ocr

// NoTextFound возвращается вместо текста, если провайдер не нашёл ни одной аннотации.
const NoTextFound = "No text found."

type Annotation struct {
	Description string `json:"description"`
	Locale      string `json:"locale,omitempty"`
}

type TextResult struct {
	Text string `json:"text"`
}
