/*

Package model provides hyper-parameters, the base model and evaluators shared by rating approximations.

	* Matrix approximations: CUR (model/cur), truncated SVD (model/svd)
	* Neighborhood models: user based k-NN with optional baseline (model/knn)
	* Metrics: RMSE, Spearman rank correlation, precision at k

*/
package model
