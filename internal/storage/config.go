package storage

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

// Enabled reports whether an endpoint was configured.
func (c *MinIOConfig) Enabled() bool {
	return c != nil && c.Endpoint != ""
}

// ObjectName maps a store key to its object name in the bucket.
func ObjectName(key string) string {
	return key + ".json"
}
