package checker

import (
	"reflect"
	"testing"
)

func TestMeetIdentity(t *testing.T) {
	status, exc := Meet(StatusUnknown, StatusClosed, nil, nil, "")
	if status != StatusClosed || exc != nil {
		t.Fatalf("Unknown meet Closed = %v %v", status, exc)
	}
	status, exc = Meet(StatusClosedByExceptions, StatusUnknown, []string{"division_by_zero"}, nil, "")
	if status != StatusClosedByExceptions || len(exc) != 1 {
		t.Fatalf("CBE meet Unknown = %v %v", status, exc)
	}
}

func TestMeetEqualStatuses(t *testing.T) {
	status, exc := Meet(StatusClosed, StatusClosed, nil, nil, "")
	if status != StatusClosed || exc != nil {
		t.Fatalf("Closed meet Closed = %v %v", status, exc)
	}
	status, _ = Meet(StatusUnclosed, StatusUnclosed, nil, nil, "")
	if status != StatusUnclosed {
		t.Fatalf("Unclosed meet Unclosed = %v", status)
	}
}

func TestMeetMergesExceptionLists(t *testing.T) {
	status, exc := Meet(StatusClosedByExceptions, StatusClosedByExceptions,
		[]string{"division_by_zero"}, []string{"no_data_found", "division_by_zero"}, "")
	if status != StatusClosedByExceptions {
		t.Fatalf("status = %v", status)
	}
	want := []string{"division_by_zero", "no_data_found"}
	if !reflect.DeepEqual(exc, want) {
		t.Fatalf("exceptions = %v, want %v", exc, want)
	}
}

func TestMeetSubstitutesReRaise(t *testing.T) {
	status, exc := Meet(StatusClosedByExceptions, StatusClosedByExceptions,
		nil, []string{reRaise}, "division_by_zero")
	if status != StatusClosedByExceptions {
		t.Fatalf("status = %v", status)
	}
	if !reflect.DeepEqual(exc, []string{"division_by_zero"}) {
		t.Fatalf("re-raise not substituted: %v", exc)
	}
}

func TestMeetClosedAbsorbsExceptionPath(t *testing.T) {
	status, _ := Meet(StatusClosed, StatusClosedByExceptions, nil, []string{"others"}, "")
	if status != StatusClosed {
		t.Fatalf("Closed meet CBE = %v, want Closed", status)
	}
	status, _ = Meet(StatusClosedByExceptions, StatusClosed, []string{"others"}, nil, "")
	if status != StatusClosed {
		t.Fatalf("CBE meet Closed = %v, want Closed", status)
	}
}

func TestMeetDivergentPaths(t *testing.T) {
	cases := []struct{ a, b ClosingStatus }{
		{StatusClosed, StatusUnclosed},
		{StatusUnclosed, StatusClosed},
		{StatusPossiblyClosed, StatusClosed},
		{StatusClosedByExceptions, StatusUnclosed},
	}
	for _, c := range cases {
		status, exc := Meet(c.a, c.b, nil, nil, "")
		if status != StatusPossiblyClosed || exc != nil {
			t.Fatalf("%v meet %v = %v %v, want possibly closed", c.a, c.b, status, exc)
		}
	}
}

func TestPossiblyClosedWeakening(t *testing.T) {
	if got := possiblyClosed(StatusClosed); got != StatusPossiblyClosed {
		t.Fatalf("closed loop body = %v", got)
	}
	if got := possiblyClosed(StatusClosedByExceptions); got != StatusPossiblyClosed {
		t.Fatalf("cbe loop body = %v", got)
	}
	if got := possiblyClosed(StatusUnclosed); got != StatusUnclosed {
		t.Fatalf("unclosed loop body = %v", got)
	}
}

func TestClosesPredicate(t *testing.T) {
	if !StatusClosed.Closes() || !StatusClosedByExceptions.Closes() {
		t.Fatal("closed statuses must close")
	}
	if StatusUnclosed.Closes() || StatusPossiblyClosed.Closes() || StatusUnknown.Closes() {
		t.Fatal("open statuses must not close")
	}
}

func TestConditionMatches(t *testing.T) {
	if !conditionMatches("division_by_zero", "division_by_zero") {
		t.Fatal("exact condition must match")
	}
	if conditionMatches("division_by_zero", "no_data_found") {
		t.Fatal("different conditions must not match")
	}
	if !conditionMatches("others", "raise_exception") {
		t.Fatal("others catches ordinary conditions")
	}
	if conditionMatches("others", "query_canceled") || conditionMatches("others", "assert_failure") {
		t.Fatal("others never catches cancellation or assert failures")
	}
	if !handlerCatches([]string{"no_data_found", "others"}, "division_by_zero") {
		t.Fatal("handler list with others must catch")
	}
}
