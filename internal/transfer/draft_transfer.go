package transfer

type ResolveRequest struct {
	Action     string `json:"action" validate:"required,oneof=post_with_template post_with_edits skip"`
	EditedBody string `json:"edited_body" validate:"max=2000"`
}
