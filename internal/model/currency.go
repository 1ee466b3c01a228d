package model

// Currency is one entry of the static conversion table. Rate is relative
// to USD; Decimals is the display precision (0 for currencies quoted
// without decimals).
type Currency struct {
	Code        string  `json:"code"`
	CountryCode string  `json:"country_code"`
	Symbol      string  `json:"symbol"`
	Rate        float64 `json:"rate"`
	Decimals    int     `json:"decimals"`
}
