package config

// Persistent state keys (Registry)
const (
	KeyTargetAltitude = "autopilot_target_altitude"
	KeyTargetSpeed    = "autopilot_target_speed"
	KeyStepInterval   = "sim_step_interval"
	KeyImportMTime    = "waypoint_import_mtime"
)
