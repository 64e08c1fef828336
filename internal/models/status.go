package models

// JobStatus — статус жизненного цикла заявки.
// Статус одновременно является guard'ом для движения денег, поэтому все
// переходы идут только через таблицу ниже и условные UPDATE в репозитории.
type JobStatus string

const (
	JobStatusOpen              JobStatus = "open"
	JobStatusInNegotiation     JobStatus = "in_negotiation"
	JobStatusAccepted          JobStatus = "accepted"
	JobStatusInProgress        JobStatus = "in_progress"
	JobStatusPendingCompletion JobStatus = "pending_completion"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusCancelled         JobStatus = "cancelled"
)

// jobTransitions — единственный источник правды о допустимых переходах.
// in_progress -> completed и in_progress -> cancelled достижимы только
// через разрешение спора, сервисный слой дополнительно это контролирует.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusOpen:              {JobStatusInNegotiation, JobStatusAccepted, JobStatusCancelled},
	JobStatusInNegotiation:     {JobStatusAccepted, JobStatusCancelled},
	JobStatusAccepted:          {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress:        {JobStatusPendingCompletion, JobStatusCompleted, JobStatusCancelled},
	JobStatusPendingCompletion: {JobStatusCompleted, JobStatusInProgress, JobStatusCancelled},
	JobStatusCompleted:         {},
	JobStatusCancelled:         {},
}

func (s JobStatus) IsValid() bool {
	_, ok := jobTransitions[s]
	return ok
}

// IsTerminal сообщает, что из статуса нет переходов: заявку может тронуть
// только retention sweeper.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus — ортогональный статус оплаты заявки.
// Единственные допустимые переходы: pending -> paid и pending -> failed.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s != PaymentStatusPending {
		return false
	}
	return next == PaymentStatusPaid || next == PaymentStatusFailed
}

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusPending, ProposalStatusAccepted, ProposalStatusRejected:
		return true
	}
	return false
}

type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
)
