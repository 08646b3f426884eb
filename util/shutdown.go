package util

import (
	"context"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ShutdownChannelDistributor - For letting multiple listeners receive the internal shutdown signal.
type ShutdownChannelDistributor struct {
	mutex          sync.Mutex
	hasShutdown    bool
	outputChannels []chan<- bool
	cancel         context.CancelFunc
	context        context.Context
}

// NewShutdownChannelDistributor - Create a distributor that shuts down when a signal arrives on the input channel.
func NewShutdownChannelDistributor(input <-chan os.Signal) *ShutdownChannelDistributor {
	ctx, cancel := context.WithCancel(context.Background())
	shutdown := &ShutdownChannelDistributor{
		context: ctx,
		cancel:  cancel,
	}
	if input != nil {
		go func() {
			signal := <-input
			log.WithFields(log.Fields{
				"signal": signal.String(),
			}).Info("Received shutdown signal")
			shutdown.Shutdown()
		}()
	}
	return shutdown
}

// AddListener - Add a channel to duplicate input to.
// Return false if the shutdown signal has already been sent.
func (shutdown *ShutdownChannelDistributor) AddListener(output chan<- bool) bool {
	shutdown.mutex.Lock()
	defer shutdown.mutex.Unlock()
	if shutdown.hasShutdown {
		return false
	}
	shutdown.outputChannels = append(shutdown.outputChannels, output)
	return true
}

// Context - Context which is cancelled when the shutdown signal is sent.
func (shutdown *ShutdownChannelDistributor) Context() context.Context {
	return shutdown.context
}

// Shutdown - Send shutdown signal to all listeners. Only the first call has any effect.
func (shutdown *ShutdownChannelDistributor) Shutdown() {
	shutdown.mutex.Lock()
	defer shutdown.mutex.Unlock()
	if shutdown.hasShutdown {
		return
	}
	shutdown.hasShutdown = true
	shutdown.cancel()
	log.Infof("Sending shutdown signal to %v listeners", len(shutdown.outputChannels))
	for _, output := range shutdown.outputChannels {
		output <- true
	}
}
