// Package ast models the host compiler's statement tree for one routine.
// The host dispatches statements by a type tag; here that becomes a closed
// tagged union: one Stmt struct, a Kind, and exactly one payload pointer
// set per kind. Walkers switch exhaustively on Kind.
package ast

// StmtKind enumerates every statement the analyzed language has.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtBlock
	StmtAssign
	StmtIf
	StmtCase
	StmtLoop
	StmtWhile
	StmtForI
	StmtForS
	StmtForC
	StmtForEach
	StmtExit
	StmtReturn
	StmtReturnNext
	StmtReturnQuery
	StmtRaise
	StmtAssert
	StmtExecSQL
	StmtDynExec
	StmtPerform
	StmtGetDiag
	StmtOpen
	StmtFetch
	StmtClose
	StmtCommit
	StmtRollback
	StmtNull
	StmtPragma
)

var stmtKindNames = [...]string{
	StmtInvalid:     "invalid statement",
	StmtBlock:       "statement block",
	StmtAssign:      "assignment",
	StmtIf:          "IF",
	StmtCase:        "CASE",
	StmtLoop:        "LOOP",
	StmtWhile:       "WHILE",
	StmtForI:        "FOR with integer loop variable",
	StmtForS:        "FOR over SELECT rows",
	StmtForC:        "FOR over cursor",
	StmtForEach:     "FOREACH over array",
	StmtExit:        "EXIT",
	StmtReturn:      "RETURN",
	StmtReturnNext:  "RETURN NEXT",
	StmtReturnQuery: "RETURN QUERY",
	StmtRaise:       "RAISE",
	StmtAssert:      "ASSERT",
	StmtExecSQL:     "SQL statement",
	StmtDynExec:     "EXECUTE",
	StmtPerform:     "PERFORM",
	StmtGetDiag:     "GET DIAGNOSTICS",
	StmtOpen:        "OPEN",
	StmtFetch:       "FETCH",
	StmtClose:       "CLOSE",
	StmtCommit:      "COMMIT",
	StmtRollback:    "ROLLBACK",
	StmtNull:        "NULL",
	StmtPragma:      "PRAGMA",
}

func (k StmtKind) String() string {
	if int(k) < len(stmtKindNames) {
		return stmtKindNames[k]
	}
	return "invalid statement"
}

// Stmt is one statement node. ID is a stable per-routine statement number
// assigned by the host (used to relate profiler execution counters);
// Line is the 1-based source line of the statement keyword.
type Stmt struct {
	ID    int
	Kind  StmtKind
	Line  int
	Label string

	Block       *BlockStmt
	Assign      *AssignStmt
	If          *IfStmt
	Case        *CaseStmt
	Loop        *LoopStmt
	While       *WhileStmt
	ForI        *ForIStmt
	ForS        *ForSStmt
	ForC        *ForCStmt
	ForEach     *ForEachStmt
	Exit        *ExitStmt
	Return      *ReturnStmt
	ReturnQuery *ReturnQueryStmt
	Raise       *RaiseStmt
	Assert      *AssertStmt
	ExecSQL     *ExecSQLStmt
	DynExec     *DynExecStmt
	Perform     *PerformStmt
	GetDiag     *GetDiagStmt
	Open        *OpenStmt
	Fetch       *FetchStmt
	Close       *CloseStmt
	Pragma      *PragmaStmt
}

// ExceptionHandler is one WHEN <conditions> THEN arm of a block's
// EXCEPTION section. Condition names are folded ("others", "division_by_zero").
type ExceptionHandler struct {
	Conditions []string
	Body       []*Stmt
}

type BlockStmt struct {
	Body       []*Stmt
	Exceptions []ExceptionHandler
}

type AssignStmt struct {
	TargetDno int
	Expr      *SQLExpr
}

type ElseIf struct {
	Cond *SQLExpr
	Body []*Stmt
}

type IfStmt struct {
	Cond    *SQLExpr
	Then    []*Stmt
	ElseIfs []ElseIf
	HasElse bool
	Else    []*Stmt
}

type CaseWhen struct {
	Cond *SQLExpr
	Body []*Stmt
}

type CaseStmt struct {
	// Expr is the searched operand; nil for a boolean CASE.
	Expr    *SQLExpr
	Whens   []CaseWhen
	HasElse bool
	Else    []*Stmt
}

type LoopStmt struct {
	Body []*Stmt
}

type WhileStmt struct {
	Cond *SQLExpr
	Body []*Stmt
}

type ForIStmt struct {
	VarDno  int
	Lower   *SQLExpr
	Upper   *SQLExpr
	Step    *SQLExpr
	Reverse bool
	Body    []*Stmt
}

type ForSStmt struct {
	TargetDno int
	Query     *SQLExpr
	// Dynamic marks FOR ... IN EXECUTE; Query is then the command string
	// expression, not the command itself.
	Dynamic bool
	Params  []*SQLExpr
	Body    []*Stmt
}

type ForCStmt struct {
	TargetDno int
	CursorDno int
	ArgQuery  *SQLExpr
	Body      []*Stmt
}

type ForEachStmt struct {
	TargetDno int
	Expr      *SQLExpr
	Body      []*Stmt
}

type ExitStmt struct {
	// IsExit distinguishes EXIT from CONTINUE.
	IsExit bool
	Label  string
	Cond   *SQLExpr
}

type ReturnStmt struct {
	Expr *SQLExpr
	// RetVarDno is set (>= 0) for RETURN <variable> forms resolved by the
	// host to a datum instead of an expression.
	RetVarDno int
}

type ReturnQueryStmt struct {
	Query   *SQLExpr
	Dynamic bool
	Params  []*SQLExpr
}

// RaiseLevel mirrors the host's RAISE levels.
type RaiseLevel uint8

const (
	RaiseDebug RaiseLevel = iota
	RaiseLog
	RaiseInfo
	RaiseNotice
	RaiseWarning
	RaiseException
)

type RaiseOptionKind uint8

const (
	RaiseOptionErrcode RaiseOptionKind = iota
	RaiseOptionMessage
	RaiseOptionDetail
	RaiseOptionHint
)

type RaiseOption struct {
	Kind RaiseOptionKind
	Expr *SQLExpr
}

type RaiseStmt struct {
	Level RaiseLevel
	// Message is the format string with % placeholders; empty when the
	// condition-name form is used.
	Message  string
	CondName string
	Params   []*SQLExpr
	Options  []RaiseOption
}

type AssertStmt struct {
	Cond    *SQLExpr
	Message *SQLExpr
}

type ExecSQLStmt struct {
	Query     *SQLExpr
	Into      bool
	TargetDno int
	Strict    bool
}

type DynExecStmt struct {
	Query     *SQLExpr
	Into      bool
	TargetDno int
	Strict    bool
	Params    []*SQLExpr
}

type PerformStmt struct {
	Expr *SQLExpr
}

type GetDiagItem struct {
	TargetDno int
	Item      string
}

type GetDiagStmt struct {
	Items []GetDiagItem
}

type OpenStmt struct {
	CursorDno int
	Query     *SQLExpr
	Dynamic   bool
	Params    []*SQLExpr
}

type FetchStmt struct {
	CursorDno int
	TargetDno int
}

type CloseStmt struct {
	CursorDno int
}

// PragmaStmt carries the directive text of an inline checker pragma
// (the reserved marker recognized by the host parser).
type PragmaStmt struct {
	Text string
}
