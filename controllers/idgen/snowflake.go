package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	fallback sync.Once
)

// Init binds the generator to a node number. Call once at startup.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	node = n
	return nil
}

// GenerateID returns a new time-ordered id. Without Init it uses node 1.
func GenerateID() int64 {
	fallback.Do(func() {
		if node == nil {
			node, _ = snowflake.NewNode(1)
		}
	})
	return node.Generate().Int64()
}
