package employee

type CreatedEvent struct {
	Result Employee
}

type SalaryChangedEvent struct {
	Previous Employee
	Result   Employee
}

type DeletedEvent struct {
	Result Employee
}
