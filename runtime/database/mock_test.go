package database

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/phormium-go/phormium/query"
	"github.com/phormium-go/phormium/query/sqlgen"
)

// MockConn is a mock implementation of Conn
type MockConn struct {
	mock.Mock
}

func (m *MockConn) Name() string {
	return m.Called().String(0)
}

func (m *MockConn) Dialect() sqlgen.Dialect {
	return m.Called().Get(0).(sqlgen.Dialect)
}

func (m *MockConn) Execute(ctx context.Context, seg query.Segment) (int64, error) {
	args := m.Called(ctx, seg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConn) PreparedExecute(ctx context.Context, seg query.Segment) (int64, error) {
	args := m.Called(ctx, seg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConn) Query(ctx context.Context, seg query.Segment) ([]query.Row, error) {
	args := m.Called(ctx, seg)
	rows, _ := args.Get(0).([]query.Row)
	return rows, args.Error(1)
}

func (m *MockConn) PreparedQuery(ctx context.Context, seg query.Segment) ([]query.Row, error) {
	args := m.Called(ctx, seg)
	rows, _ := args.Get(0).([]query.Row)
	return rows, args.Error(1)
}

func (m *MockConn) PreparedIterate(ctx context.Context, seg query.Segment, fn func(query.Row) error) error {
	return m.Called(ctx, seg, fn).Error(0)
}

func (m *MockConn) Begin(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConn) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConn) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConn) InTransaction() bool {
	return m.Called().Bool(0)
}

func (m *MockConn) Disconnect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockFactory is a mock implementation of ConnectionFactory
type MockFactory struct {
	mock.Mock
}

func (m *MockFactory) NewConnection(ctx context.Context, name string) (Conn, error) {
	args := m.Called(ctx, name)
	conn, _ := args.Get(0).(Conn)
	return conn, args.Error(1)
}
