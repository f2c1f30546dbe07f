package mongostore

import "github.com/iotaledger/chronicle/pkg/store"

var (
	_ store.OutputStore            = (*Store)(nil)
	_ store.CommitmentStore        = (*Store)(nil)
	_ store.BlockStore              = (*Store)(nil)
	_ store.ApplicationStateStore  = (*Store)(nil)
	_ store.ProtocolUpdateStore    = (*Store)(nil)
	_ store.NodeConfigurationStore = (*Store)(nil)
	_ store.SyncRecordStore        = (*Store)(nil)
)
