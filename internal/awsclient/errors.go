package awsclient

import (
	"errors"

	"github.com/aws/smithy-go"
)

// ErrorCode returns the service error code carried by err, or "" when err
// did not come back from a service.
func ErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

// IsNotFound reports whether err is a service response saying the resource
// does not exist, as opposed to a transport or permission failure.
func IsNotFound(err error) bool {
	switch ErrorCode(err) {
	case "NotFound", "NoSuchBucket", "NoSuchKey", "NotFoundException",
		"ResourceNotFoundException",
		"QueueDoesNotExist", "AWS.SimpleQueueService.NonExistentQueue":
		return true
	}
	return false
}
