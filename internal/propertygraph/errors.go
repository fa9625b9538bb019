package propertygraph

import "errors"

var (
	ErrNodeNotFound   = errors.New("propertygraph: node not found")
	ErrInvalidPattern = errors.New("propertygraph: federated query pattern must set graph id and label/type")
)
