package watch

// DefaultRegistry returns a Registry with every watcher this repository
// ships registered, mirroring the upstream tool's default_registry().
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(AiderWatcher{})
	r.Register(ClaudeCodeWatcher{})
	r.Register(NewVSCodeExtensionWatcher(ClineConfig))
	r.Register(CodexWatcher{})
	r.Register(ContinueDevWatcher{})
	r.Register(CursorWatcher{})
	r.Register(GeminiCLIWatcher{})
	r.Register(NewVSCodeExtensionWatcher(RooCodeConfig))
	r.Register(NewVSCodeExtensionWatcher(KiloCodeConfig))
	return r
}
