package domain

// Kinds the risk rule tables and the CRD pipeline dispatch on.
const (
	KindService                  = "Service"
	KindDeployment               = "Deployment"
	KindStatefulSet              = "StatefulSet"
	KindDaemonSet                = "DaemonSet"
	KindPersistentVolumeClaim    = "PersistentVolumeClaim"
	KindRole                     = "Role"
	KindClusterRole              = "ClusterRole"
	KindCustomResourceDefinition = "CustomResourceDefinition"
)
