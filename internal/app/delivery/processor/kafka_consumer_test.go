package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/internal/app/delivery/repository"
	"parceldelivery/internal/app/delivery/repository/mocks"
	"parceldelivery/internal/app/delivery/service"
	"parceldelivery/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockParcelService мок для ParcelServiceInterface
type MockParcelService struct {
	mock.Mock
}

func (m *MockParcelService) Register(ctx context.Context, userID uuid.UUID, req *entity.RegisterParcelRequest) (*entity.Parcel, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Parcel), args.Error(1)
}

func (m *MockParcelService) RegisterAsync(ctx context.Context, userID uuid.UUID, req *entity.RegisterParcelRequest) (uuid.UUID, error) {
	args := m.Called(ctx, userID, req)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockParcelService) GetParcel(ctx context.Context, userID, parcelID uuid.UUID) (*entity.Parcel, error) {
	args := m.Called(ctx, userID, parcelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Parcel), args.Error(1)
}

func (m *MockParcelService) ListParcels(ctx context.Context, userID uuid.UUID, filter *entity.ParcelFilter) ([]entity.Parcel, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Parcel), args.Error(1)
}

func (m *MockParcelService) ListParcelTypes(ctx context.Context) ([]entity.ParcelType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ParcelType), args.Error(1)
}

// MockUserService мок для UserServiceInterface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetOrCreate(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

// ===================== NewKafkaConsumer Tests =====================

func TestNewKafkaConsumer(t *testing.T) {
	// Arrange
	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	// Act
	consumer := NewKafkaConsumer([]string{"localhost:9092"}, "parcel_registrations", "test-group", parcelSvc, userSvc)

	// Assert
	assert.NotNil(t, consumer)
	assert.NotNil(t, consumer.reader)
	assert.NotNil(t, consumer.stopChan)
	assert.NotNil(t, consumer.doneChan)

	// Cleanup
	consumer.reader.Close()
}

// ===================== processMessage Tests =====================

func TestKafkaConsumer_ProcessMessage_Success(t *testing.T) {
	// Arrange
	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	consumer := &KafkaConsumer{
		parcelSvc: parcelSvc,
		userSvc:   userSvc,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}

	ctx := context.Background()
	requestID := uuid.New()
	userID := uuid.New()
	typeID := uuid.New()

	queued := entity.ParcelQueuedMessage{
		RequestID:    requestID,
		Weight:       1.5,
		DollarPrice:  30.0,
		ParcelTypeID: typeID,
		Name:         "Книги",
		UserID:       userID,
	}

	body, _ := json.Marshal(queued)

	message := kafka.Message{
		Topic:     "parcel_registrations",
		Partition: 0,
		Offset:    1,
		Key:       []byte(requestID.String()),
		Value:     body,
	}

	userSvc.On("GetOrCreate", ctx, userID).Return(&entity.User{ID: userID}, nil)
	parcelSvc.On("Register", ctx, userID, mock.MatchedBy(func(req *entity.RegisterParcelRequest) bool {
		return req.RequestID != nil && *req.RequestID == requestID && req.ParcelTypeID == typeID
	})).Return(&entity.Parcel{ID: uuid.New(), RequestID: requestID, UserID: userID}, nil)

	// Act
	err := consumer.processMessage(ctx, message)

	// Assert
	assert.NoError(t, err)
	userSvc.AssertExpectations(t)
	parcelSvc.AssertExpectations(t)
}

func TestKafkaConsumer_ProcessMessage_InvalidJSON(t *testing.T) {
	// Arrange
	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	consumer := &KafkaConsumer{
		parcelSvc: parcelSvc,
		userSvc:   userSvc,
	}

	ctx := context.Background()

	message := kafka.Message{
		Value: []byte("invalid json {{{"),
	}

	// Act
	err := consumer.processMessage(ctx, message)

	// Assert: битое сообщение отвергается без паники и без записи в БД
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
	userSvc.AssertNotCalled(t, "GetOrCreate")
	parcelSvc.AssertNotCalled(t, "Register")
}

func TestKafkaConsumer_ProcessMessage_MissingRequestID(t *testing.T) {
	// Arrange
	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	consumer := &KafkaConsumer{
		parcelSvc: parcelSvc,
		userSvc:   userSvc,
	}

	ctx := context.Background()

	queued := entity.ParcelQueuedMessage{
		Weight:       1.0,
		DollarPrice:  5.0,
		ParcelTypeID: uuid.New(),
		UserID:       uuid.New(),
	}
	body, _ := json.Marshal(queued)

	// Act
	err := consumer.processMessage(ctx, kafka.Message{Value: body})

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "request_id is required")
	parcelSvc.AssertNotCalled(t, "Register")
}

func TestKafkaConsumer_ProcessMessage_NegativeWeight(t *testing.T) {
	// Arrange
	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	consumer := &KafkaConsumer{
		parcelSvc: parcelSvc,
		userSvc:   userSvc,
	}

	ctx := context.Background()

	queued := entity.ParcelQueuedMessage{
		RequestID:    uuid.New(),
		Weight:       -1.0,
		DollarPrice:  5.0,
		ParcelTypeID: uuid.New(),
		UserID:       uuid.New(),
	}
	body, _ := json.Marshal(queued)

	// Act
	err := consumer.processMessage(ctx, kafka.Message{Value: body})

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "weight cannot be negative")
	parcelSvc.AssertNotCalled(t, "Register")
}

func TestKafkaConsumer_ProcessMessage_UserServiceError(t *testing.T) {
	// Arrange
	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	consumer := &KafkaConsumer{
		parcelSvc: parcelSvc,
		userSvc:   userSvc,
	}

	ctx := context.Background()
	userID := uuid.New()

	queued := entity.ParcelQueuedMessage{
		RequestID:    uuid.New(),
		Weight:       1.0,
		DollarPrice:  5.0,
		ParcelTypeID: uuid.New(),
		UserID:       userID,
	}
	body, _ := json.Marshal(queued)

	userSvc.On("GetOrCreate", ctx, userID).Return(nil, errors.New("connection refused"))

	// Act
	err := consumer.processMessage(ctx, kafka.Message{Value: body})

	// Assert: ошибка возвращается наверх, offset не коммитится
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve user")
	parcelSvc.AssertNotCalled(t, "Register")
}

func TestKafkaConsumer_ProcessMessage_RegistrationError(t *testing.T) {
	// Arrange
	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	consumer := &KafkaConsumer{
		parcelSvc: parcelSvc,
		userSvc:   userSvc,
	}

	ctx := context.Background()
	userID := uuid.New()

	queued := entity.ParcelQueuedMessage{
		RequestID:    uuid.New(),
		Weight:       1.0,
		DollarPrice:  5.0,
		ParcelTypeID: uuid.New(),
		UserID:       userID,
	}
	body, _ := json.Marshal(queued)

	userSvc.On("GetOrCreate", ctx, userID).Return(&entity.User{ID: userID}, nil)
	parcelSvc.On("Register", ctx, userID, mock.Anything).Return(nil, errors.New("db down"))

	// Act
	err := consumer.processMessage(ctx, kafka.Message{Value: body})

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to register parcel")
}

func TestKafkaConsumer_ProcessMessage_EmptyMessage(t *testing.T) {
	// Arrange
	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	consumer := &KafkaConsumer{
		parcelSvc: parcelSvc,
		userSvc:   userSvc,
	}

	ctx := context.Background()

	// Act
	err := consumer.processMessage(ctx, kafka.Message{Value: []byte{}})

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

// ===================== Consume Loop Tests =====================

// fetchResult - один шаг сценария фейкового reader
type fetchResult struct {
	msg kafka.Message
	err error
}

// fakeMessageReader проигрывает заданный сценарий выборок и записывает
// порядок событий fetch/commit. После исчерпания сценария имитирует
// пустой опрос, возвращая истекший дедлайн
type fakeMessageReader struct {
	mu      sync.Mutex
	script  []fetchResult
	pos     int
	commits []kafka.Message
	events  []string
}

func (f *fakeMessageReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.script) {
		return kafka.Message{}, context.DeadlineExceeded
	}
	step := f.script[f.pos]
	f.pos++
	if step.err != nil {
		f.events = append(f.events, "fetch_error")
		return kafka.Message{}, step.err
	}
	f.events = append(f.events, fmt.Sprintf("fetch %d", step.msg.Offset))
	return step.msg, nil
}

func (f *fakeMessageReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.commits = append(f.commits, m)
		f.events = append(f.events, fmt.Sprintf("commit %d", m.Offset))
	}
	return nil
}

func (f *fakeMessageReader) Close() error { return nil }

func (f *fakeMessageReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

func (f *fakeMessageReader) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commits)
}

func (f *fakeMessageReader) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

// syncBuffer - потокобезопасный буфер для перехвата вывода логгера
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLoopConsumer(reader messageReader, parcelSvc service.ParcelServiceInterface, userSvc service.UserServiceInterface) *KafkaConsumer {
	return &KafkaConsumer{
		reader:    reader,
		parcelSvc: parcelSvc,
		userSvc:   userSvc,
		topic:     "parcel_registrations",
		groupID:   "delivery-worker",
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

func queuedMessageBody(t *testing.T, msg entity.ParcelQueuedMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	assert.NoError(t, err)
	return body
}

func TestKafkaConsumer_Consume_RedeliveredMessageRegistersOnce(t *testing.T) {
	// Arrange: одно и то же сообщение доставляется дважды (ребаланс до
	// коммита), оба экземпляра подтверждаются, запись создается одна
	userID := uuid.New()
	requestID := uuid.New()
	typeID := uuid.New()

	body := queuedMessageBody(t, entity.ParcelQueuedMessage{
		RequestID:    requestID,
		Weight:       2.5,
		DollarPrice:  40.0,
		ParcelTypeID: typeID,
		Name:         "Books",
		UserID:       userID,
	})

	parcelRepo := new(mocks.MockParcelRepository)
	typeRepo := new(mocks.MockParcelTypeRepository)
	userRepo := new(mocks.MockUserRepository)

	userRepo.On("GetByID", mock.Anything, userID).
		Return(&entity.User{ID: userID}, nil).Twice()

	// Первая доставка: ключа идемпотентности еще нет, вставка проходит
	parcelRepo.On("GetByRequestID", mock.Anything, requestID).
		Return(nil, repository.ErrParcelNotFound).Once()
	parcelRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *entity.Parcel) bool {
		return p.RequestID == requestID && p.UserID == userID
	})).Return(nil).Once()

	// Повторная доставка: находим существующую запись, вставки нет
	parcelRepo.On("GetByRequestID", mock.Anything, requestID).
		Return(&entity.Parcel{ID: uuid.New(), RequestID: requestID, UserID: userID}, nil).Once()

	parcelSvc := service.NewParcelService(parcelRepo, typeRepo, nil)
	userSvc := service.NewUserService(userRepo)

	msg := kafka.Message{Offset: 7, Value: body}
	fake := &fakeMessageReader{script: []fetchResult{{msg: msg}, {msg: msg}}}
	consumer := newLoopConsumer(fake, parcelSvc, userSvc)

	// Act
	consumer.Start(context.Background())
	assert.Eventually(t, func() bool {
		return fake.commitCount() == 2
	}, 3*time.Second, 10*time.Millisecond)
	consumer.Stop()

	// Assert: оба экземпляра подтверждены, Create вызван ровно один раз
	assert.Equal(t, 2, fake.commitCount())
	parcelRepo.AssertNumberOfCalls(t, "Create", 1)
	parcelRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestKafkaConsumer_Consume_CommitsBeforeNextFetch(t *testing.T) {
	// Arrange: два сообщения, цикл держит в обработке не больше одного -
	// выборка следующего возможна только после коммита предыдущего
	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	userID := uuid.New()
	makeMsg := func(offset int64) kafka.Message {
		return kafka.Message{
			Offset: offset,
			Value: queuedMessageBody(t, entity.ParcelQueuedMessage{
				RequestID:    uuid.New(),
				Weight:       1.0,
				DollarPrice:  10.0,
				ParcelTypeID: uuid.New(),
				UserID:       userID,
			}),
		}
	}

	userSvc.On("GetOrCreate", mock.Anything, userID).
		Return(&entity.User{ID: userID}, nil)
	parcelSvc.On("Register", mock.Anything, userID, mock.Anything).
		Return(&entity.Parcel{ID: uuid.New()}, nil)

	fake := &fakeMessageReader{script: []fetchResult{{msg: makeMsg(1)}, {msg: makeMsg(2)}}}
	consumer := newLoopConsumer(fake, parcelSvc, userSvc)

	// Act
	consumer.Start(context.Background())
	assert.Eventually(t, func() bool {
		return fake.commitCount() == 2
	}, 3*time.Second, 10*time.Millisecond)
	consumer.Stop()

	// Assert: строгий порядок fetch-commit-fetch-commit
	assert.Equal(t, []string{"fetch 1", "commit 1", "fetch 2", "commit 2"}, fake.eventLog())
}

func TestKafkaConsumer_Consume_BrokerErrorLoggedAndLoopContinues(t *testing.T) {
	// Arrange: ошибка брокера (не истекший дедлайн) должна попасть в лог,
	// после чего цикл продолжает работу и обрабатывает следующее сообщение
	logBuf := &syncBuffer{}
	logger.InitWithWriter("delivery-worker-test", "error", logBuf)

	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	userID := uuid.New()
	body := queuedMessageBody(t, entity.ParcelQueuedMessage{
		RequestID:    uuid.New(),
		Weight:       1.0,
		DollarPrice:  10.0,
		ParcelTypeID: uuid.New(),
		UserID:       userID,
	})

	userSvc.On("GetOrCreate", mock.Anything, userID).
		Return(&entity.User{ID: userID}, nil)
	parcelSvc.On("Register", mock.Anything, userID, mock.Anything).
		Return(&entity.Parcel{ID: uuid.New()}, nil)

	fake := &fakeMessageReader{script: []fetchResult{
		{err: errors.New("broker connection reset")},
		{msg: kafka.Message{Offset: 3, Value: body}},
	}}
	consumer := newLoopConsumer(fake, parcelSvc, userSvc)

	// Act
	consumer.Start(context.Background())
	// Ветка ошибки выдерживает секундную паузу перед повторной выборкой
	assert.Eventually(t, func() bool {
		return fake.commitCount() == 1
	}, 5*time.Second, 20*time.Millisecond)
	consumer.Stop()

	// Assert: ошибка брокера залогирована, сообщение после нее обработано
	assert.Contains(t, logBuf.String(), "Error fetching message")
	assert.Contains(t, logBuf.String(), "broker connection reset")
	assert.Equal(t, []string{"fetch_error", "fetch 3", "commit 3"}, fake.eventLog())
}

func TestKafkaConsumer_Consume_EmptyPollIsSilent(t *testing.T) {
	// Arrange: истекший дедлайн выборки - обычный пустой опрос,
	// он не должен попадать в лог ошибок
	logBuf := &syncBuffer{}
	logger.InitWithWriter("delivery-worker-test", "error", logBuf)

	parcelSvc := new(MockParcelService)
	userSvc := new(MockUserService)

	fake := &fakeMessageReader{}
	consumer := newLoopConsumer(fake, parcelSvc, userSvc)

	// Act
	consumer.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	consumer.Stop()

	// Assert
	assert.NotContains(t, logBuf.String(), "Error fetching message")
	assert.Equal(t, 0, fake.commitCount())
}
