package store

// Session queries
const (
	queryInsertSession = `
		INSERT INTO sessions (id, status, exit_code, started_at)
		VALUES (?, ?, ?, ?)`

	queryFinishSession = `
		UPDATE sessions
		SET status = ?, exit_code = ?, finished_at = now()
		WHERE id = ?`

	queryGetSession = `
		SELECT id, status, exit_code, started_at, finished_at
		FROM sessions WHERE id = ?`
)

// Step result queries
const (
	queryInsertStepResult = `
		INSERT INTO step_results (session_id, position, name, status, exit_code, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryListStepResults = `
		SELECT session_id, position, name, status, exit_code, duration_ms, started_at
		FROM step_results
		WHERE session_id = ?
		ORDER BY position`
)
