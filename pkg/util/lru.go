package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// entry 结构体用于存储链表节点中的实际数据。
type entry[K comparable, V any] struct {
	key        K
	value      V
	expiration time.Time // 元素的过期时间，零值表示永不过期
}

// LRUCache 是一个支持泛型、线程安全的 LRU 缓存，按容量淘汰，
// 并可选地为元素设置统一的存活时间。
type LRUCache[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	ll       *list.List
	cache    map[K]*list.Element
	lock     sync.RWMutex
}

// NewLRUCache 创建一个最多容纳 capacity 个元素的缓存实例。
// ttl 为 0 时元素永不过期。
func NewLRUCache[K comparable, V any](capacity int, ttl time.Duration) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity 必须大于 0")
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		cache:    make(map[K]*list.Element),
	}, nil
}

// Get 方法根据键获取一个值。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	element, ok := c.cache[key]
	if !ok {
		var zeroV V
		return zeroV, false
	}

	// 检查TTL是否过期（被动淘汰）
	ent := element.Value.(*entry[K, V])
	if c.ttl > 0 && time.Now().After(ent.expiration) {
		c.removeElement(element)
		var zeroV V
		return zeroV, false
	}

	// 标记为最近使用
	c.ll.MoveToFront(element)
	return ent.value, true
}

// Put 方法向缓存中添加或更新一个键值对。
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if element, ok := c.cache[key]; ok {
		ent := element.Value.(*entry[K, V])
		ent.value = value
		if c.ttl > 0 {
			ent.expiration = time.Now().Add(c.ttl)
		}
		c.ll.MoveToFront(element)
		return
	}

	newEntry := &entry[K, V]{key: key, value: value}
	if c.ttl > 0 {
		newEntry.expiration = time.Now().Add(c.ttl)
	}
	c.cache[key] = c.ll.PushFront(newEntry)

	if c.ll.Len() > c.capacity {
		c.evict()
	}
}

// evict 淘汰最久未使用的元素。此方法假设已持有锁。
func (c *LRUCache[K, V]) evict() {
	if backElement := c.ll.Back(); backElement != nil {
		c.removeElement(backElement)
	}
}

// removeElement 从链表和 map 中移除元素。此方法假设已持有锁。
func (c *LRUCache[K, V]) removeElement(e *list.Element) {
	c.ll.Remove(e)
	delete(c.cache, e.Value.(*entry[K, V]).key)
}

// Len 返回当前缓存中的条目数量。
func (c *LRUCache[K, V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.ll.Len()
}
