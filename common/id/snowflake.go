package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

const defaultNode = 1

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init sets the Snowflake node. Replicas sharing a Redis session backend
// need distinct node IDs so session IDs stay unique.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// New generates a time-ordered unique int64 ID. Falls back to node 1 when
// Init was never called, which is what tests and the console rely on.
func New() int64 {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(defaultNode)
	}
	n := node
	mu.Unlock()
	return n.Generate().Int64()
}
