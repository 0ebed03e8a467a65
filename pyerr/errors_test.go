package pyerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMalformedBytecodeMessage(t *testing.T) {
	err := NewMalformedBytecode("<module>", 12, "jump target out of range")
	msg := err.Error()
	for _, want := range []string{"<module>", "12", "jump target out of range"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestErrorsUnwrapThroughFmt(t *testing.T) {
	inner := NewStackUnderflow("f", 4, "BINARY_OP")
	wrapped := fmt.Errorf("simulating block: %w", inner)
	var underflow *StackUnderflow
	if !errors.As(wrapped, &underflow) {
		t.Fatalf("errors.As must find the typed error through a %%w wrap")
	}
	if underflow.Opcode != "BINARY_OP" {
		t.Fatalf("opcode = %q", underflow.Opcode)
	}
}

func TestStackDepthMismatchCarriesBlock(t *testing.T) {
	err := NewStackDepthMismatch("f", 9)
	if !strings.Contains(err.Error(), "block 9") {
		t.Fatalf("message %q must cite the block id", err.Error())
	}
}

func TestNotAnExpressionMessage(t *testing.T) {
	err := NewNotAnExpression("f", 20, "RETURN_VALUE")
	if !strings.Contains(err.Error(), "RETURN_VALUE") {
		t.Fatalf("message %q must cite the opcode", err.Error())
	}
}

func TestOutOfMemoryUnwraps(t *testing.T) {
	cause := errors.New("mmap failed")
	err := &OutOfMemory{Cause: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("OutOfMemory must unwrap to its cause")
	}
}
