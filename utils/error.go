package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorDuplicateRecord maps a unique-constraint violation. The batch store
// raises it when a period is already covered by a prior batch.
var ErrorDuplicateRecord = errors.New("duplicate record")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
