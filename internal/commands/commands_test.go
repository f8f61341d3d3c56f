package commands_test

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"
	"time"

	"tasklist/internal/commands"
	"tasklist/internal/config"
	"tasklist/internal/exitcode"
	"tasklist/internal/manager"
	"tasklist/internal/store"
	"tasklist/internal/task"
	"tasklist/internal/testutil"
)

var epoch = time.UnixMilli(1700000000000)

// newSession opens a manager over fs with a fixed clock.
func newSession(t *testing.T, fs *testutil.FakeStore) *manager.Manager {
	t.Helper()
	mgr := manager.New(context.Background(), store.NewCollection(fs, "", nil), manager.Options{
		Now: func() time.Time { return epoch },
	})
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })
	return mgr
}

// seed stores tasks in fs the way a previous session would have.
func seed(t *testing.T, fs *testutil.FakeStore, tasks ...task.Task) {
	t.Helper()
	v, err := task.Encode(tasks)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fs.Put(store.DefaultKey, v)
}

// runCommand is a helper to run a command against a session over fs.
// It flushes the session so fs holds the result.
func runCommand(t *testing.T, cmd commands.Command, fs *testutil.FakeStore, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	cfg := &config.Config{
		Dir:   t.TempDir(),
		Quiet: quiet,
	}

	mgr := newSession(t, fs)
	ctx := context.Background()
	code = cmd.Run(ctx, cfg, mgr, args, &outBuf, &errBuf)

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mgr.Flush(flushCtx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return outBuf.String(), errBuf.String(), code
}

// stored decodes the collection persisted in fs.
func stored(t *testing.T, fs *testutil.FakeStore) []task.Task {
	t.Helper()
	v, ok := fs.Value(store.DefaultKey)
	if !ok {
		return nil
	}
	tasks, err := task.Decode(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return tasks
}

func threeTasks() []task.Task {
	return []task.Task{
		{ID: "1", Text: "Buy milk"},
		{ID: "2", Text: "Walk dog", Completed: true},
		{ID: "3", Text: "Buy eggs"},
	}
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, testutil.NewFakeStore(), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasklist 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, testutil.NewFakeStore(), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "help", stdout)
}

// Tests for list command
func TestListCommand_AllTasks(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, fs, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "list_all", stdout)
}

func TestListCommand_FilterKeepsPositions(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	cmd := &commands.ListCmd{}
	cmd.SetFilter("active")
	stdout, _, code := runCommand(t, cmd, fs, nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	expected := "   1  [ ] Buy milk\n   3  [ ] Buy eggs\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_Search(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	var outBuf, errBuf bytes.Buffer
	cmd := &commands.ListCmd{}
	mgr := newSession(t, fs)
	fsFlags := newFlagSet(cmd)
	if err := fsFlags.Parse([]string{"--search", "BUY", "--filter", "all"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	code := cmd.Run(context.Background(), &config.Config{Dir: t.TempDir(), Quiet: true}, mgr, fsFlags.Args(), &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	expected := "   1  [ ] Buy milk\n   3  [ ] Buy eggs\n"
	if outBuf.String() != expected {
		t.Errorf("expected %q, got %q", expected, outBuf.String())
	}
}

func TestListCommand_UsageNamesFlags(t *testing.T) {
	cmd := &commands.ListCmd{}
	fsFlags := newFlagSet(cmd)

	for _, name := range []string{"f", "s", "ids"} {
		if fsFlags.Lookup(name) == nil {
			t.Fatalf("flag %q not registered", name)
		}
	}
	usage := cmd.Usage()
	for _, want := range []string{"-f <filter>", "-s <term>", "--ids"} {
		if !strings.Contains(usage, want) {
			t.Errorf("usage %q does not mention %q", usage, want)
		}
	}
}

func TestListCommand_Empty(t *testing.T) {
	tests := []struct {
		quiet    bool
		expected string
	}{
		{false, "no tasks found\n"},
		{true, ""},
	}

	for _, tt := range tests {
		stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeStore(), nil, tt.quiet)

		if code != exitcode.Success {
			t.Errorf("quiet=%v: expected exit code %d, got %d", tt.quiet, exitcode.Success, code)
		}
		if stderr != "" {
			t.Errorf("quiet=%v: expected no stderr, got %q", tt.quiet, stderr)
		}
		if stdout != tt.expected {
			t.Errorf("quiet=%v: expected %q, got %q", tt.quiet, tt.expected, stdout)
		}
	}
}

func TestListCommand_InvalidFilter(t *testing.T) {
	cmd := &commands.ListCmd{}
	cmd.SetFilter("someday")
	stdout, stderr, code := runCommand(t, cmd, testutil.NewFakeStore(), nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: invalid filter: someday\n" {
		t.Errorf("expected invalid filter error, got %q", stderr)
	}
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	fs := testutil.NewFakeStore()

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, fs, []string{"Buy", "milk"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok #1700000000000\n" {
		t.Errorf("expected 'ok #1700000000000\\n', got %q", stdout)
	}

	tasks := stored(t, fs)
	if len(tasks) != 1 || tasks[0].Text != "Buy milk" || tasks[0].Completed {
		t.Errorf("unexpected stored tasks: %+v", tasks)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.AddCmd{}, testutil.NewFakeStore(), []string{"Buy milk"}, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_NoText(t *testing.T) {
	for _, args := range [][]string{nil, {"  "}} {
		fs := testutil.NewFakeStore()
		_, stderr, code := runCommand(t, &commands.AddCmd{}, fs, args, false)

		if code != exitcode.UserError {
			t.Errorf("%q: expected exit code %d, got %d", args, exitcode.UserError, code)
		}
		if stderr != "error: text required\n" {
			t.Errorf("%q: expected 'error: text required', got %q", args, stderr)
		}
		if len(fs.History()) != 0 {
			t.Errorf("%q: expected nothing saved", args)
		}
	}
}

// Tests for done command
func TestDoneCommand_TogglesByPosition(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, fs, []string{"1"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if !stored(t, fs)[0].Completed {
		t.Error("task 1 should be completed")
	}
}

func TestDoneCommand_ReopensByID(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	stdout, _, code := runCommand(t, &commands.DoneCmd{}, fs, []string{"#2"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "reopened\n" {
		t.Errorf("expected 'reopened\\n', got %q", stdout)
	}
	if stored(t, fs)[1].Completed {
		t.Error("task 2 should be open again")
	}
}

func TestDoneCommand_BadRefs(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{nil, "error: task reference required\n"},
		{[]string{"abc"}, "error: invalid task reference: abc\n"},
		{[]string{"4"}, "error: task number out of range: 4\n"},
		{[]string{"0"}, "error: task number out of range: 0\n"},
		{[]string{"#99"}, "error: task not found: #99\n"},
	}

	for _, tt := range tests {
		fs := testutil.NewFakeStore()
		seed(t, fs, threeTasks()...)

		stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, fs, tt.args, false)

		if code != exitcode.UserError {
			t.Errorf("%q: expected exit code %d, got %d", tt.args, exitcode.UserError, code)
		}
		if stdout != "" {
			t.Errorf("%q: expected no stdout, got %q", tt.args, stdout)
		}
		if stderr != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.args, tt.expected, stderr)
		}
		if len(fs.History()) != 0 {
			t.Errorf("%q: expected nothing saved", tt.args)
		}
	}
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	stdout, _, code := runCommand(t, &commands.RmCmd{}, fs, []string{"2"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	tasks := stored(t, fs)
	if len(tasks) != 2 || tasks[0].ID != "1" || tasks[1].ID != "3" {
		t.Errorf("unexpected stored tasks: %+v", tasks)
	}
}

func TestRmCommand_NoRef(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.RmCmd{}, testutil.NewFakeStore(), nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("expected 'error: task reference required', got %q", stderr)
	}
}

// Tests for edit command
func TestEditCommand_Success(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	stdout, _, code := runCommand(t, &commands.EditCmd{}, fs, []string{"3", "Buy", "bread"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	tasks := stored(t, fs)
	if tasks[2].ID != "3" || tasks[2].Text != "Buy bread" {
		t.Errorf("unexpected task after edit: %+v", tasks[2])
	}
}

func TestEditCommand_NoText(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	_, stderr, code := runCommand(t, &commands.EditCmd{}, fs, []string{"3"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: text required\n" {
		t.Errorf("expected 'error: text required', got %q", stderr)
	}
	if len(fs.History()) != 0 {
		t.Error("expected nothing saved")
	}
}

// Tests for clear command
func TestClearCommand(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	stdout, _, code := runCommand(t, &commands.ClearCmd{}, fs, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "cleared 1\n" {
		t.Errorf("expected 'cleared 1\\n', got %q", stdout)
	}
	if len(stored(t, fs)) != 2 {
		t.Errorf("expected 2 tasks left, got %d", len(stored(t, fs)))
	}
}

// Tests for count command
func TestCountCommand(t *testing.T) {
	fs := testutil.NewFakeStore()
	seed(t, fs, threeTasks()...)

	stdout, _, code := runCommand(t, &commands.CountCmd{}, fs, nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "2\n" {
		t.Errorf("expected '2\\n', got %q", stdout)
	}
}

// Tests for serve command
func TestServeCommand_StopsWithContext(t *testing.T) {
	cmd := &commands.ServeCmd{}
	fsFlags := newFlagSet(cmd)
	if err := fsFlags.Parse([]string{"--addr", "127.0.0.1:0"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: t.TempDir(), Quiet: true}
	mgr := newSession(t, testutil.NewFakeStore())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- cmd.Run(ctx, cfg, mgr, nil, &outBuf, &errBuf)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case code := <-done:
		if code != exitcode.Success {
			t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestRegistry_AliasesResolve(t *testing.T) {
	for alias, name := range map[string]string{"create": "add", "toggle": "done", "ls": "list"} {
		cmd, ok := commands.DefaultRegistry.Find(alias)
		if !ok {
			t.Errorf("alias %s not registered", alias)
			continue
		}
		if cmd.Name() != name {
			t.Errorf("alias %s: expected %s, got %s", alias, name, cmd.Name())
		}
	}
	if !strings.Contains(commands.HelpText(commands.DefaultRegistry), "tasklist serve") {
		t.Error("help should list serve")
	}
}

func newFlagSet(cmd commands.Command) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	return fs
}
