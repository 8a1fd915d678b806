// Package reconcile фоновая доразведка транзакций с неизвестным исходом:
// периодически опрашивает статус у провайдера и доводит транзакцию до
// терминального состояния либо до ручного разбора.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/provider"
)

const (
	defaultServiceTimeout         = 3 * time.Second
	defaultQueryTimeout           = 10 * time.Second
	defaultPollInterval           = 30 * time.Second
	defaultLimitPerIteration uint = 100
	defaultQueryWorkers      uint = 10
)

// Processor обрабатывает подвешенные транзакции через опрос статуса у провайдеров.
type Processor struct {
	svs               Servicer
	gateways          GatewayResolver
	l                 *logrus.Entry
	limitPerIteration uint
	queryWorkers      uint
	pollInterval      time.Duration
}

// New создает новый экземпляр процессора доразведки.
func New(svs Servicer, gateways GatewayResolver, l *logrus.Logger) *Processor {
	loggerEntry := l.WithFields(logrus.Fields{
		"component": "reconcile",
		"module":    "processor",
	})

	return &Processor{
		svs:               svs,
		gateways:          gateways,
		l:                 loggerEntry,
		limitPerIteration: defaultLimitPerIteration,
		queryWorkers:      defaultQueryWorkers,
		pollInterval:      defaultPollInterval,
	}
}

// SetLimitPerIteration устанавливает кол-во транзакций, обрабатываемых в одной итерации.
func (p *Processor) SetLimitPerIteration(limit uint) *Processor {
	p.limitPerIteration = limit
	return p
}

// SetQueryWorkers устанавливает кол-во воркеров опрашивающих провайдеров.
func (p *Processor) SetQueryWorkers(workers uint) *Processor {
	p.queryWorkers = workers
	return p
}

// SetPollInterval устанавливает паузу между итерациями доразведки.
func (p *Processor) SetPollInterval(interval time.Duration) *Processor {
	p.pollInterval = interval
	return p
}

// Run запускает доразведку в бесконечном цикле до отмены контекста.
//
// Алгоритм работы:
//  1. В каждой итерации через сервисный слой запрашивается список подвешенных
//     транзакций. Объем лимитируется через SetLimitPerIteration.
//  2. Для каждой итерации создаются N воркеров (кол-во настраивается через
//     SetQueryWorkers), которые опрашивают статус у соответствующего провайдера.
//  3. Каждый результат применяется через сервисный слой: подтверждённый успех
//     рассчитывается, подтверждённый отказ компенсируется, неизвестность
//     увеличивает счётчик попыток.
func (p *Processor) Run(ctx context.Context) {
	p.l.WithFields(logrus.Fields{
		"limitPerIteration": p.limitPerIteration,
		"queryWorkers":      p.queryWorkers,
		"pollInterval":      p.pollInterval,
	}).Info("Starting")

	t := time.NewTicker(p.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			p.l.Info("Got stop signal, exiting...")
			return
		case <-t.C:
			if err := p.process(ctx); err != nil {
				if !errors.Is(err, ErrNoTransactions) {
					p.l.WithError(err).Error("process error")
				}
			}
		}
	}
}

// process выполняет одну итерацию: получение списка, опрос провайдеров и
// применение результатов. Возвращает ErrNoTransactions если опрашивать нечего.
func (p *Processor) process(ctx context.Context) error {
	transactions, transErr := p.produce(ctx)
	if transErr != nil {
		return fmt.Errorf("process: %w", transErr)
	}

	results := p.runWorkers(ctx, transactions)

	for _, result := range results {
		reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
		applyErr := p.svs.ApplyRequeryOutcome(reqCtx, result.Trans, result.Outcome)
		cancel()
		if applyErr != nil {
			p.l.WithError(applyErr).WithField("transID", result.Trans.TransID).Error("apply requery outcome")
		}
	}
	return nil
}

// workerResult результат опроса статуса одной транзакции.
type workerResult struct {
	WorkerID uint
	Trans    domain.Transaction
	Outcome  provider.Outcome
}

// runWorkers запускает параллельных воркеров для опроса провайдеров и ожидает
// конца их работы. Реализует паттерн fan-out/fan-in.
func (p *Processor) runWorkers(ctx context.Context, transactions []domain.Transaction) []workerResult {
	var taskCh = make(chan domain.Transaction, len(transactions))

	for _, trans := range transactions {
		taskCh <- trans
	}
	close(taskCh)

	wg := new(sync.WaitGroup)
	wg.Add(int(p.queryWorkers)) //nolint:gosec

	var resultCh = make(chan *workerResult, len(transactions))

	for i := range p.queryWorkers {
		go p.worker(ctx, wg, i+1, taskCh, resultCh)
	}
	wg.Wait()

	close(resultCh)

	var results = make([]workerResult, 0, len(transactions))
	for result := range resultCh {
		p.l.WithFields(logrus.Fields{
			"worker":  result.WorkerID,
			"transID": result.Trans.TransID,
			"outcome": result.Outcome.Status,
			"attempt": result.Trans.RequeryAttempts + 1,
		}).Info("status queried")
		results = append(results, *result)
	}
	return results
}

// worker опрашивает транзакции из канала и отправляет результаты.
func (p *Processor) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	taskCh <-chan domain.Transaction,
	resultCh chan<- *workerResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-taskCh:
			if !ok {
				return
			}
			resultCh <- p.processWorkerTask(ctx, workerID, task)
		}
	}
}

// processWorkerTask опрашивает статус транзакции у её провайдера. Неизвестный
// провайдер (снят с поддержки) сворачивается в неоднозначный исход — счётчик
// попыток доведёт транзакцию до ручного разбора.
func (p *Processor) processWorkerTask(
	ctx context.Context,
	workerID uint,
	task domain.Transaction,
) *workerResult {
	gateway, resolveErr := p.gateways.Resolve(task.Provider)
	if resolveErr != nil {
		return &workerResult{
			WorkerID: workerID,
			Trans:    task,
			Outcome:  provider.Ambiguous(resolveErr.Error()),
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	outcome := gateway.QueryStatus(reqCtx, task.TransID)
	cancel()

	return &workerResult{
		WorkerID: workerID,
		Trans:    task,
		Outcome:  outcome,
	}
}

// produce получает список транзакций для доразведки.
// Возвращает ErrNoTransactions, если таковые отсутствуют.
func (p *Processor) produce(ctx context.Context) ([]domain.Transaction, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	transactions, transErr := p.svs.TransactionsForRequery(produceCtx, p.limitPerIteration)
	if transErr != nil {
		return nil, fmt.Errorf("produce: %w", transErr)
	}

	if len(transactions) == 0 {
		return nil, ErrNoTransactions
	}
	return transactions, nil
}
