package shared

// AggregateRoot 聚合根接口
// 聚合根维护一致性边界，所有修改必须经由聚合根进行，并由聚合根记录领域事件。
// 仓储保存聚合根时依据 Version 做乐观锁校验。
type AggregateRoot interface {
	// ID 返回聚合根的全局唯一标识
	ID() string

	// Version 返回当前版本号，用于乐观锁并发控制
	Version() int

	// PullEvents 获取并清空聚合根记录的领域事件
	PullEvents() []DomainEvent
}

// IsAggregateRoot 类型标记函数
// 使用方法：var _ = IsAggregateRoot(&MerchantOrder{})
func IsAggregateRoot(agg AggregateRoot) AggregateRoot {
	return agg
}

// Entity 实体接口：通过标识判断相等性
type Entity interface {
	ID() string
}
