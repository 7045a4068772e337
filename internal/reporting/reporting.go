// Package reporting produces aggregate call statistics for the admin
// surface. Aggregation happens in memory over the window's records; windows
// are bounded by the API layer.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/niggl1/interfoneapp/internal/calls"
)

// Summary aggregates one reporting window.
type Summary struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	Total      int `json:"total"`
	Answered   int `json:"answered"`
	Rejected   int `json:"rejected"`
	Missed     int `json:"missed"`
	InProgress int `json:"inProgress"`
	Ringing    int `json:"ringing"`

	VisitorCalls int `json:"visitorCalls"`

	// AnswerRate counts calls that were picked up, finished or not, over
	// the total. 0 when the window is empty.
	AnswerRate float64 `json:"answerRate"`
	// AvgDurationSeconds averages only calls that reached ENDED with a
	// recorded duration.
	AvgDurationSeconds float64 `json:"avgDurationSeconds"`
}

type Service struct {
	store calls.Store
}

func NewService(store calls.Store) *Service {
	return &Service{store: store}
}

// CallsSummary aggregates all calls started inside [from, to).
func (s *Service) CallsSummary(ctx context.Context, from, to time.Time) (Summary, error) {
	if !to.After(from) {
		return Summary{}, fmt.Errorf("%w: report window must end after it starts", calls.ErrInvalidArgument)
	}

	records, err := s.store.ListBetween(ctx, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("list calls for summary: %w", err)
	}

	sum := Summary{From: from, To: to, Total: len(records)}
	var durationTotal, durationCount int
	for _, c := range records {
		switch c.Status {
		case calls.StatusRinging:
			sum.Ringing++
		case calls.StatusAnswered:
			sum.InProgress++
		case calls.StatusEnded:
			sum.Answered++
			if c.DurationSeconds != nil {
				durationTotal += *c.DurationSeconds
				durationCount++
			}
		case calls.StatusRejected:
			sum.Rejected++
		case calls.StatusMissed:
			sum.Missed++
		}
		if c.CallerType == calls.CallerVisitor {
			sum.VisitorCalls++
		}
	}

	if sum.Total > 0 {
		sum.AnswerRate = float64(sum.Answered+sum.InProgress) / float64(sum.Total)
	}
	if durationCount > 0 {
		sum.AvgDurationSeconds = float64(durationTotal) / float64(durationCount)
	}
	return sum, nil
}
