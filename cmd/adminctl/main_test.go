package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/logging"
)

const sampleFile = `transactions:
  - amount: "10.00"
    paidAt: "2024-02-29"
  - amount: "2.50"
    paidAt: "2023-02-01T09:30:00Z"
  - amount: "7.25"
    paidAt: "2024-03-15"
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "txs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o600))
	return path
}

func testEnv() (*env, *bytes.Buffer) {
	var out bytes.Buffer
	return &env{out: &out, logger: logging.Nop()}, &out
}

func TestAggregate_File(t *testing.T) {
	tests := []struct {
		name       string
		cmd        aggregateCmd
		wantLines  int
		wantTotal  string
		wantPrefix string
	}{
		{
			name:       "monthly all years folds February together",
			cmd:        aggregateCmd{Granularity: "month", Ref: "2024-06-01", Output: "text"},
			wantLines:  13,
			wantTotal:  "19.75",
			wantPrefix: "Jan",
		},
		{
			name:       "monthly year scoped",
			cmd:        aggregateCmd{Granularity: "month", Ref: "2024-06-01", YearScoped: true, Output: "text"},
			wantLines:  13,
			wantTotal:  "17.25",
			wantPrefix: "Jan",
		},
		{
			name:       "daily leap February",
			cmd:        aggregateCmd{Granularity: "day", Ref: "2024-02-10", Output: "text"},
			wantLines:  30,
			wantTotal:  "10.00",
			wantPrefix: "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd
			cmd.File = writeSample(t)
			e, out := testEnv()

			require.NoError(t, cmd.Run(context.Background(), e))

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			assert.Len(t, lines, tt.wantLines)
			assert.True(t, strings.HasPrefix(lines[0], tt.wantPrefix))
			assert.True(t, strings.HasSuffix(lines[len(lines)-1], tt.wantTotal), "total line %q", lines[len(lines)-1])
		})
	}
}

func TestAggregate_JSONOutput(t *testing.T) {
	e, out := testEnv()
	cmd := aggregateCmd{Granularity: "day", Ref: "2024-02-10", Output: "json", File: writeSample(t)}

	require.NoError(t, cmd.Run(context.Background(), e))
	assert.Contains(t, out.String(), `"label": "29"`)
	assert.Contains(t, out.String(), `"total": "10.00"`)
}

func TestAggregate_RequiresSource(t *testing.T) {
	e, _ := testEnv()
	cmd := aggregateCmd{Granularity: "month", Output: "text"}
	assert.Error(t, cmd.Run(context.Background(), e))
}

func TestLoadTransactionFile_BadAmount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transactions:\n  - amount: ten\n    paidAt: 2024-01-01\n"), 0o600))

	_, err := loadTransactionFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestValidate(t *testing.T) {
	e, out := testEnv()

	cmd := validateCmd{Domain: "payouts", Current: "pending", Requested: "cancelled", Reason: "fraud"}
	require.NoError(t, cmd.Run(context.Background(), e))
	assert.Equal(t, "ok: withdrawal pending -> cancelled (cancel)\n", out.String())

	cmd.Reason = ""
	err := cmd.Run(context.Background(), e)
	assert.ErrorIs(t, err, generic.ErrMissingRequiredField)

	closed := validateCmd{Domain: "ticket", Current: "closed", Requested: "closed", Action: "update", Reply: "hi"}
	assert.ErrorIs(t, closed.Run(context.Background(), e), generic.ErrInvalidTransition)
}

func TestSeedAndClassify(t *testing.T) {
	db := filepath.Join(t.TempDir(), "admin.db")
	e, out := testEnv()

	require.NoError(t, (&seedCmd{Scenario: "support-backlog", DB: db}).Run(context.Background(), e))
	out.Reset()

	require.NoError(t, (&classifyCmd{Domain: "withdrawals", DB: db}).Run(context.Background(), e))
	assert.Equal(t, "Pending      1\nCompleted    1\nCancelled    1\n", out.String())

	out.Reset()
	require.NoError(t, (&migrateCmd{DB: db}).Run(context.Background(), e))
	assert.Contains(t, out.String(), "dirty=false")
}
