package models

// Post event actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// PostEvent is pushed to listeners whenever a post changes. Post holds the
// populated post for create, the saved post for update and the id for delete.
type PostEvent struct {
	Action string `json:"action"`
	Post   any    `json:"post"`
}
