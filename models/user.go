package models

// User carries the customer fields the dispatch engine needs for
// notifications. Full account management is an external collaborator.
type User struct {
	ID       string `bson:"id" json:"id"`
	Name     string `bson:"name" json:"name"`
	FCMToken string `bson:"fcm_token,omitempty" json:"-"`
}
