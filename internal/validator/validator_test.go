package validator

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

func tx(raw string, value any) protocol.Transaction {
	return protocol.Transaction{URI: uri.MustParse(raw), Value: value}
}

func TestAcceptAndReject(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, Accept()(ctx, tx("mutable://open/x", "anything"), nil))

	err := Reject("writes are disabled")(ctx, tx("mutable://open/x", "anything"), nil)
	require.Error(t, err)
	assert.Equal(t, protocol.CodeValidationRejected, protocol.CodeOf(err))
	assert.Contains(t, err.Error(), "writes are disabled")
}

func TestFormat(t *testing.T) {
	isObject := Format(func(tx protocol.Transaction) bool {
		_, ok := tx.Value.(map[string]any)
		return ok
	}, "payload must be an object")

	ctx := context.Background()
	assert.NoError(t, isObject(ctx, tx("mutable://open/x", map[string]any{}), nil))

	err := isObject(ctx, tx("mutable://open/x", "a string"), nil)
	assert.Equal(t, protocol.CodeValidationRejected, protocol.CodeOf(err))
}

func TestURIPattern(t *testing.T) {
	v := URIPattern(regexp.MustCompile(`^mutable://open/users/[a-z]+$`))
	ctx := context.Background()

	assert.NoError(t, v(ctx, tx("mutable://open/users/alice", nil), nil))
	assert.Error(t, v(ctx, tx("mutable://open/orders/7", nil), nil))
}

func TestRequireFields(t *testing.T) {
	v := RequireFields("name", "amount")
	ctx := context.Background()

	assert.NoError(t, v(ctx, tx("mutable://open/x", map[string]any{
		"name": "alice", "amount": 5, "extra": true,
	}), nil))

	err := v(ctx, tx("mutable://open/x", map[string]any{"name": "alice"}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")

	err = v(ctx, tx("mutable://open/x", []any{"not", "an", "object"}), nil)
	assert.Equal(t, protocol.CodeValidationRejected, protocol.CodeOf(err))
}

func TestEnvelope(t *testing.T) {
	ctx := context.Background()
	v := Envelope()

	assert.NoError(t, v(ctx, tx("txn://local/batch-1", map[string]any{
		"inputs":  []any{},
		"outputs": []any{[]any{"mutable://open/x", 1}},
	}), nil))

	err := v(ctx, tx("txn://local/batch-1", map[string]any{"hello": "world"}), nil)
	assert.Equal(t, protocol.CodeValidationRejected, protocol.CodeOf(err))
}

type staticResolver map[string]protocol.Validator

func (r staticResolver) Resolve(key string) (protocol.Validator, bool) {
	v, ok := r[key]
	return v, ok
}

func TestProgram(t *testing.T) {
	ctx := context.Background()
	v := Program(staticResolver{
		"mutable://open": Accept(),
	})

	assert.NoError(t, v(ctx, tx("mutable://open/x", nil), nil))

	err := v(ctx, tx("mutable://sealed/x", nil), nil)
	assert.Equal(t, protocol.CodeUnknownProgram, protocol.CodeOf(err))
}

func TestSeqShortCircuits(t *testing.T) {
	ctx := context.Background()
	var reached bool
	v := Seq(
		Reject("first gate"),
		func(context.Context, protocol.Transaction, protocol.Reader) error {
			reached = true
			return nil
		},
	)

	err := v(ctx, tx("mutable://open/x", nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first gate")
	assert.False(t, reached)

	assert.NoError(t, Seq(Accept(), Accept())(ctx, tx("mutable://open/x", nil), nil))
	assert.NoError(t, Seq()(ctx, tx("mutable://open/x", nil), nil))
}

func TestAnyFirstSuccessWins(t *testing.T) {
	ctx := context.Background()

	v := Any(Reject("path a"), Accept(), Reject("path c"))
	assert.NoError(t, v(ctx, tx("mutable://open/x", nil), nil))

	err := Any(Reject("path a"), Reject("path b"))(ctx, tx("mutable://open/x", nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path a")
	assert.Contains(t, err.Error(), "path b")

	assert.NoError(t, Any()(ctx, tx("mutable://open/x", nil), nil))
}

func TestAllRequiresEveryBranch(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, All(Accept(), Accept(), Accept())(ctx, tx("mutable://open/x", nil), nil))

	err := All(Accept(), Reject("balance too low"), Reject("signature stale"))(
		ctx, tx("mutable://open/x", nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3")
	assert.Contains(t, err.Error(), "balance too low")
	assert.Contains(t, err.Error(), "signature stale")
}

func TestAllAwaitsEveryBranch(t *testing.T) {
	// A failing branch must not cancel its siblings.
	ctx := context.Background()
	ran := make([]bool, 3)

	branch := func(i int, err error) protocol.Validator {
		return func(context.Context, protocol.Transaction, protocol.Reader) error {
			ran[i] = true
			return err
		}
	}

	_ = All(
		branch(0, protocol.Errorf(protocol.CodeValidationRejected, "", "no")),
		branch(1, nil),
		branch(2, nil),
	)(ctx, tx("mutable://open/x", nil), nil)

	assert.Equal(t, []bool{true, true, true}, ran)
}

func TestPanicBecomesRejection(t *testing.T) {
	ctx := context.Background()
	boom := func(context.Context, protocol.Transaction, protocol.Reader) error {
		panic("index out of range")
	}

	for name, v := range map[string]protocol.Validator{
		"seq": Seq(boom),
		"any": Any(boom),
		"all": All(boom),
	} {
		t.Run(name, func(t *testing.T) {
			err := v(ctx, tx("mutable://open/x", nil), nil)
			require.Error(t, err)
			assert.Equal(t, protocol.CodeValidationRejected, protocol.CodeOf(err))
		})
	}
}
