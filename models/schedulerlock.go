package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SchedulerLock backs the distributed lock that keeps cron jobs from running
// on more than one instance at a time
type SchedulerLock struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	JobName    string             `bson:"jobName" json:"jobName"`
	InstanceID string             `bson:"instanceId" json:"instanceId"`
	ExpiresAt  primitive.DateTime `bson:"expiresAt" json:"expiresAt"`
}
