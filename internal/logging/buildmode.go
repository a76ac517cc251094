package logging

// Mode selects how assert-level calls behave. It is fixed per Logger.
type Mode int

const (
	// ModeDebug panics on assert-level calls unless a debug hook is set,
	// and defaults the threshold to the most verbose level.
	ModeDebug Mode = iota
	// ModeRelease never panics and defaults the threshold to disabled.
	ModeRelease
)

func (m Mode) String() string {
	if m == ModeRelease {
		return "release"
	}
	return "debug"
}

// defaultLevel is the threshold reported before one is explicitly set.
func (m Mode) defaultLevel() Level {
	if m == ModeRelease {
		return LevelDisabled
	}
	return LevelTrace
}

// BuildMode is the mode selected at compile time with the "release" build tag.
func BuildMode() Mode {
	if releaseBuild {
		return ModeRelease
	}
	return ModeDebug
}
