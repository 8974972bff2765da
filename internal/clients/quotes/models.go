package quotes

// quoteResponse is the wire format of the quote gateway
type quoteResponse struct {
	Quotes []wireQuote `json:"quotes"`
}

type wireQuote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}
