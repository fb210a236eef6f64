package core

// CategoryTotal is the amount spent in one category over some period.
type CategoryTotal struct {
	Name   string  `json:"category_name"`
	Amount float64 `json:"amount"`
}

// PeriodTotal is the amount spent in a period starting at Start.
type PeriodTotal struct {
	Start  Date    `json:"date"`
	Label  string  `json:"period"`
	Amount float64 `json:"amount"`
}

// DailyRecord is one calendar day of spend with its anomaly verdict.
type DailyRecord struct {
	Date    Date    `json:"date"`
	Amount  float64 `json:"amount"`
	Score   float64 `json:"score"`
	Anomaly bool    `json:"anomaly"`
}
