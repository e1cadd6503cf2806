package wallet

const DefaultCurrency = "MYR"

var DefaultCurrencies = []string{"MYR", "USD", "SGD", "EUR", "GBP", "THB", "IDR"}
