package try_test

import (
	"errors"
	"testing"

	"github.com/opst/exodash/pkg/utils/try"
)

type fataler struct {
	fatal  [][]any
	helper int
}

func (f *fataler) Fatal(args ...any) {
	f.fatal = append(f.fatal, args)
}

func (f *fataler) Helper() {
	f.helper += 1
}

func TestTry(t *testing.T) {
	t.Run("when it does not have error, OrFatal returns the value without Fatal", func(t *testing.T) {
		f := &fataler{}
		if actual := try.To(42, nil).OrFatal(f); actual != 42 {
			t.Errorf("unexpected result: %d", actual)
		}
		if len(f.fatal) != 0 || f.helper != 0 {
			t.Errorf("Fatal or Helper is called: %+v", f)
		}
		if actual := try.To(42, nil).OrDefault(7); actual != 42 {
			t.Errorf("unexpected default: %d", actual)
		}
	})

	t.Run("when it has error, OrFatal calls Helper and Fatal", func(t *testing.T) {
		f := &fataler{}
		err := errors.New("fake")
		if actual := try.To(42, err).OrFatal(f); actual != 0 {
			t.Errorf("unexpected result: %d", actual)
		}
		if len(f.fatal) != 1 || f.helper != 1 {
			t.Errorf("Fatal or Helper is not called: %+v", f)
		}
		if actual := try.To(42, err).OrDefault(7); actual != 7 {
			t.Errorf("unexpected default: %d", actual)
		}
		if _, actual := try.To(42, err).Get(); !errors.Is(actual, err) {
			t.Errorf("unexpected error: %v", actual)
		}
	})
}
