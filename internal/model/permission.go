package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionMediaUpload allows uploading question images and audio.
	PermissionMediaUpload Permission = "media:upload"

	// PermissionCandidatesRead allows viewing candidate lists.
	PermissionCandidatesRead Permission = "candidates:read"

	// PermissionCandidatesWrite allows registering candidates and resetting attempts.
	PermissionCandidatesWrite Permission = "candidates:write"

	// PermissionCandidatesResetSession allows revoking a candidate's active login.
	PermissionCandidatesResetSession Permission = "candidates:reset_session"

	// PermissionQuestionsRead allows browsing the question bank.
	PermissionQuestionsRead Permission = "questions:read"

	// PermissionQuestionsWrite allows creating, editing and retiring questions.
	PermissionQuestionsWrite Permission = "questions:write"

	// PermissionGradingRead allows listing completed attempts and their recordings.
	PermissionGradingRead Permission = "grading:read"

	// PermissionScoresRead allows viewing published scores.
	PermissionScoresRead Permission = "scores:read"

	// PermissionScoresWrite allows uploading scores.
	PermissionScoresWrite Permission = "scores:write"

	// PermissionAudioRead allows viewing guide audio settings.
	PermissionAudioRead Permission = "audio:read"

	// PermissionAudioWrite allows replacing guide audio tracks.
	PermissionAudioWrite Permission = "audio:write"

	// PermissionMonitorRead allows watching live exam sessions.
	PermissionMonitorRead Permission = "monitor:read"

	// PermissionAdminsRead allows viewing admin user lists and details.
	PermissionAdminsRead Permission = "admins:read"

	// PermissionAdminsWrite allows creating, updating, and deleting admin users.
	PermissionAdminsWrite Permission = "admins:write"

	// PermissionRolesRead allows viewing admin roles and permissions.
	PermissionRolesRead Permission = "roles:read"

	// PermissionRolesWrite allows creating, updating, and deleting admin roles.
	PermissionRolesWrite Permission = "roles:write"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionMediaUpload,
	PermissionCandidatesRead,
	PermissionCandidatesWrite,
	PermissionCandidatesResetSession,
	PermissionQuestionsRead,
	PermissionQuestionsWrite,
	PermissionGradingRead,
	PermissionScoresRead,
	PermissionScoresWrite,
	PermissionAudioRead,
	PermissionAudioWrite,
	PermissionMonitorRead,
	PermissionAdminsRead,
	PermissionAdminsWrite,
	PermissionRolesRead,
	PermissionRolesWrite,
}

// ValidPermission reports whether code names a known permission.
func ValidPermission(code string) bool {
	for _, p := range AllPermissions {
		if string(p) == code {
			return true
		}
	}
	return false
}
