package models

import "time"

// Instance is one configured LocalStack endpoint plus the credentials and
// region used to sign requests against it. Name is the lookup key.
type Instance struct {
	Name            string `json:"name"`
	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
}

// Configuration is the whole persisted console state. Instances keep
// insertion order, which is also display order.
type Configuration struct {
	Instances           []Instance `json:"instances"`
	DefaultInstanceName string     `json:"defaultInstanceName"`
}

// Clone returns a deep copy so callers cannot mutate store-owned slices.
func (c Configuration) Clone() Configuration {
	out := Configuration{DefaultInstanceName: c.DefaultInstanceName}
	if c.Instances != nil {
		out.Instances = make([]Instance, len(c.Instances))
		copy(out.Instances, c.Instances)
	}
	return out
}

// Find returns the first instance whose name matches exactly.
func (c Configuration) Find(name string) (Instance, bool) {
	for _, i := range c.Instances {
		if i.Name == name {
			return i, true
		}
	}
	return Instance{}, false
}

// Setting is a durable key/value slot. The configuration store keeps its JSON
// document in one of these rows.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
