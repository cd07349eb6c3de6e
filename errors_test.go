package main

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func TestErrorCollection(t *testing.T) {
	var ec ErrorCollection
	be.True(t, !ec.HasErrors())

	ec.Add(errors.New("error: first"), 3)
	ec.Add(errors.New("error: second"), 0)

	var other ErrorCollection
	other.Add(errors.New("error: third"), 9)
	ec.Merge(other)

	be.Equal(t, ec.Count(), 3)
	be.Equal(t, ec.String(), "line 3: error: first\nerror: second\nline 9: error: third")
	be.Equal(t, ec.Errors()[2], CompileError{Message: "error: third", Line: 9})
}

func TestInternalError(t *testing.T) {
	defer func() {
		r := recover()
		ie, ok := r.(InternalError)
		be.True(t, ok)
		be.Equal(t, ie.Error(), "internal compiler error: bad state 7")
	}()
	internalError("bad state %d", 7)
}
