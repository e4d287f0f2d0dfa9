package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the snowflake node. Each process (server, scan) must
// use a distinct node ID so run and alert IDs never collide across
// concurrently deployed instances.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a time-ordered, globally unique int64 ID.
func New() int64 {
	return node.Generate().Int64()
}
