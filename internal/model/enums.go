package model

type ReportKind string

const (
	ReportKindProblem  ReportKind = "problem"
	ReportKindSolution ReportKind = "solution"
)

func (k ReportKind) Valid() bool {
	return k == ReportKindProblem || k == ReportKindSolution
}

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleReporter Role = "reporter"
)
