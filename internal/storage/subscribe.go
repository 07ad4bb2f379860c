package storage

import (
	"focusboard/internal/task"
)

// Subscribe 订阅用户任务集合的全量快照：每次变更后发送完整替换集，
// 不是增量 diff。通道容量为 1，写入采用 latest-wins，慢消费者只会错过
// 中间快照，不会阻塞写路径。返回的取消函数关闭通道并注销订阅。
// Subscribe returns a channel of full-collection replacement snapshots for
// one user, delivered after every observed mutation (at-least-once, no
// ordering guarantee between documents). The buffer holds one snapshot with
// latest-wins semantics so a slow consumer never blocks the write path. The
// cancel function unregisters the subscription and closes the channel.
func (s *Store) Subscribe(userID string) (<-chan []task.Task, func()) {
	ch := make(chan []task.Task, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = &subscriber{userID: userID, ch: ch}
	s.mu.Unlock()

	// 注册后立即推送当前快照 / Seed with the current snapshot.
	if snap, err := s.ListTasks(userID); err == nil {
		s.deliver(ch, snap)
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

// notify 在任意变更后向该用户的所有订阅者广播最新快照
// notify broadcasts the latest snapshot to every subscriber of the user.
func (s *Store) notify(userID string) {
	s.mu.Lock()
	hasSubs := false
	for _, sub := range s.subs {
		if sub.userID == userID {
			hasSubs = true
			break
		}
	}
	s.mu.Unlock()
	if !hasSubs {
		return
	}

	snap, err := s.ListTasks(userID)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.userID != userID {
			continue
		}
		s.deliver(sub.ch, snap)
	}
}

// deliver latest-wins 投递：通道满时丢弃积压快照再写入
// deliver drops a backlogged snapshot before writing the fresh one.
func (s *Store) deliver(ch chan []task.Task, snap []task.Task) {
	select {
	case ch <- snap:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
