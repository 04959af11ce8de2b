package shared

import (
	"github.com/shopspring/decimal"

	"kiwipay/internal/domain/timesheet"
)

// EntryPayload is a timesheet line as sent by clients.
type EntryPayload struct {
	Date           Date            `json:"date" validate:"required"`
	StartTime      string          `json:"startTime" validate:"required"`
	EndTime        string          `json:"endTime" validate:"required"`
	BreakMinutes   int             `json:"breakMinutes" validate:"gte=0"`
	IsOvertime     bool            `json:"isOvertime"`
	OvertimeRate   decimal.Decimal `json:"overtimeRate" validate:"gte=0"`
	RateMultiplier decimal.Decimal `json:"rateMultiplier" validate:"gte=0"`
}

func Entries(payloads []EntryPayload) []timesheet.Entry {
	out := make([]timesheet.Entry, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, timesheet.Entry{
			Date:           p.Date.Time,
			StartTime:      p.StartTime,
			EndTime:        p.EndTime,
			BreakMinutes:   p.BreakMinutes,
			IsOvertime:     p.IsOvertime,
			OvertimeRate:   p.OvertimeRate,
			RateMultiplier: p.RateMultiplier,
		})
	}
	return out
}
