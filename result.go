package oci

// Result reports the outcome of Statement.Execute
type Result struct {
	rowsAffected int64
	iterations   int
	stmtType     StatementType
}

// RowsAffected returns the number of rows processed by the execution
func (r *Result) RowsAffected() int64 {
	return r.rowsAffected
}

// Iterations returns the iteration count the statement was executed with
func (r *Result) Iterations() int {
	return r.iterations
}

// StatementType returns the type of the executed statement
func (r *Result) StatementType() StatementType {
	return r.stmtType
}
