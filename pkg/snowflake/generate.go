package snowflake

import (
	"errors"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once

	errInvalidMachineID   = errors.New("invalid snowflake machine id")
	errGeneratorUninitial = errors.New("snowflake generator is not initialized")
)

func Init(machineID, dataCenterID int64) error {
	var initErr error

	once.Do(func() {
		if machineID < 0 || machineID > 31 {
			initErr = errInvalidMachineID
			return
		}
		nodeID := (dataCenterID << 5) | machineID // datacenterID 和 machineID 都是 0~31

		var err error
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			initErr = err
			return
		}
	})

	return initErr
}

func NextID() (int64, error) {
	if node == nil {
		return 0, errGeneratorUninitial
	}

	return node.Generate().Int64(), nil
}

// Generator 生成队列条目 ID，便于测试替换
type Generator interface {
	NextID() (string, error)
}

// NodeGenerator 使用进程内 snowflake 节点生成字符串 ID
type NodeGenerator struct{}

func (NodeGenerator) NextID() (string, error) {
	id, err := NextID()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// NewNodeGenerator 创建独立节点的生成器，不依赖全局 Init
func NewNodeGenerator(nodeID int64) (Generator, error) {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return standaloneGenerator{node: n}, nil
}

type standaloneGenerator struct {
	node *snowflake.Node
}

func (g standaloneGenerator) NextID() (string, error) {
	return g.node.Generate().String(), nil
}
