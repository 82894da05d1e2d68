package models

// Item represents a single task on a user's list. OwnerID is always
// derived server-side from the authenticated identity, never taken from
// the request body.
type Item struct {
	ID         int64  `json:"id" dynamodbav:"id"`
	Name       string `json:"name" dynamodbav:"name"`
	IsComplete bool   `json:"isComplete" dynamodbav:"is_complete"`
	OwnerID    int64  `json:"ownerId" dynamodbav:"owner_id"`
}

// CreateItemRequest represents the item creation payload. Any owner id
// a client smuggles in is ignored.
type CreateItemRequest struct {
	Name       string `json:"name"`
	IsComplete bool   `json:"isComplete"`
}

// ItemPatch carries a partial item update. A nil field leaves the
// stored value unchanged.
type ItemPatch struct {
	Name       *string `json:"name"`
	IsComplete *bool   `json:"isComplete"`
}

// DeleteItemResponse represents the delete confirmation payload
type DeleteItemResponse struct {
	Message string `json:"message"`
	Item    Item   `json:"item"`
}
