package engine

import "go.opentelemetry.io/otel/attribute"

func attrOp(op string) attribute.KeyValue         { return attribute.String("op", op) }
func attrStatus(status string) attribute.KeyValue { return attribute.String("status", status) }
func attrFlavor(flavor string) attribute.KeyValue { return attribute.String("flavor", flavor) }
func attrObject(object string) attribute.KeyValue { return attribute.String("object", object) }
